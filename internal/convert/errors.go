package convert

import "errors"

var (
	// ErrTerminated is returned for calls made after Terminate or a worker
	// fault, and for calls still pending when either happens.
	ErrTerminated = errors.New("converter terminated")
	// ErrWorkerFault marks an unrecoverable backend failure.
	ErrWorkerFault = errors.New("converter worker fault")
	// ErrBootstrap wraps failures while loading the backend.
	ErrBootstrap = errors.New("converter bootstrap failed")
)
