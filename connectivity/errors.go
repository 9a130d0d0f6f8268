package connectivity

import "fmt"

// ErrServiceNotFound means a call named an extraction service (such as
// legacydoc_extract) that neither the routes table nor RegisterLocal
// provides. The HTTP server maps it to 404.
type ErrServiceNotFound struct {
	Service string
}

func (e *ErrServiceNotFound) Error() string {
	return fmt.Sprintf("connectivity: no route or local handler for %q", e.Service)
}

// ErrNoFactory is logged by Reload when a route row names a strategy this
// process never registered, e.g. "http" on a binary built without it. The
// route is skipped and calls keep using the local handler.
type ErrNoFactory struct {
	Service  string
	Strategy string
}

func (e *ErrNoFactory) Error() string {
	return fmt.Sprintf("connectivity: route %s: strategy %q not registered", e.Service, e.Strategy)
}

// ErrFactoryFailed is logged by Reload when a remote extractor could not be
// set up, typically because its endpoint failed validation.
type ErrFactoryFailed struct {
	Service  string
	Strategy string
	Endpoint string
	Cause    error
}

func (e *ErrFactoryFailed) Error() string {
	return fmt.Sprintf("connectivity: route %s via %s to %s: %v",
		e.Service, e.Strategy, e.Endpoint, e.Cause)
}

func (e *ErrFactoryFailed) Unwrap() error { return e.Cause }

// ErrPanic carries the value of a panic raised inside an extraction
// handler, for example a decoder bug on a malformed document.
type ErrPanic struct {
	Value any
}

func (e *ErrPanic) Error() string {
	return fmt.Sprintf("connectivity: extraction handler panic: %v", e.Value)
}
