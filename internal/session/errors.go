package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConversionFailed = errors.New("conversion failed")
	ErrValidation       = errors.New("validation error")
	ErrNoTemplate       = errors.New("no template")
	ErrSource           = errors.New("source unavailable")
	ErrSuperseded       = errors.New("superseded by a newer open")
)

// Wrap builds an error message carrying component and operation context
// while tagging it with marker for errors.Is checks.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "session failure"
	}
	return strings.Join(parts, ": ")
}
