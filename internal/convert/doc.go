// Package convert runs the x2t document converter off the caller's
// goroutine.
//
// An Engine owns a single worker goroutine and a pluggable Backend (the
// native x2t binary or a WASI build hosted by wazero). Every call stages its
// input into a private directory alongside a params.xml task description,
// runs the converter, and collects the destination file plus any extracted
// media. Calls are correlated by numeric id so several can be in flight while
// the backend executes them one at a time.
//
// A converter that produces nothing is not an error: Result.Output is nil and
// the caller decides how to degrade. Backend panics and ErrWorkerFault
// reports terminate the engine and reject every pending call.
package convert
