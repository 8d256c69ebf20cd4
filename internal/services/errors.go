package services

import (
	"errors"

	"github.com/ajramos/wareply/internal/llm"
	"github.com/ajramos/wareply/internal/locator"
)

// Standard service errors. Aliased sentinels keep errors.Is working across
// package boundaries without re-wrapping.
var (
	// ErrNotFound means an element the pipeline needs does not currently
	// exist in the page. Never fatal; the conversation or resolver attempt
	// is abandoned for this cycle only.
	ErrNotFound = locator.ErrNotFound

	// Session errors
	ErrSessionTimeout = errors.New("session was not established in time")
	ErrSessionLost    = errors.New("browser session lost")

	// Reply-generation errors, one per failure case of the external tool
	ErrGeneratorTimeout = llm.ErrTimeout
	ErrGeneratorFailed  = errors.New("reply generation failed")
	ErrEmptyReply       = llm.ErrEmptyOutput

	// Send errors
	ErrComposeUnavailable = errors.New("compose box not available")
)

// IsFatal determines if an error must terminate the monitor loop
func IsFatal(err error) bool {
	return errors.Is(err, ErrSessionTimeout) ||
		errors.Is(err, ErrSessionLost)
}

// IsSkippable determines if an error only abandons the current conversation
func IsSkippable(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrGeneratorTimeout) ||
		errors.Is(err, ErrGeneratorFailed) ||
		errors.Is(err, ErrEmptyReply) ||
		errors.Is(err, ErrComposeUnavailable)
}
