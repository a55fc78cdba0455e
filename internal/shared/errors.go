package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Catalog errors
	ErrUpstreamUnavailable = fmt.Errorf("catalog service unavailable")
	ErrMalformedUpstream   = fmt.Errorf("malformed catalog response")
	ErrInvalidReference    = fmt.Errorf("invalid playlist reference")
	ErrCipherDefect        = fmt.Errorf("request cipher failed")
	ErrNotFound            = fmt.Errorf("not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
