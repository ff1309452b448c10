// ABOUTME: Sentinel errors for the speech output adapters
// ABOUTME: ErrUnsupported marks a facility with no configured command or endpoint

package speech

import "errors"

var (
	// ErrUnsupported means the facility is not configured on this host.
	ErrUnsupported = errors.New("speech facility unsupported")
	// ErrEmptyText is returned when asked to speak nothing.
	ErrEmptyText = errors.New("no text to speak")
	// ErrEmptyURL is returned when asked to play without an audio URL.
	ErrEmptyURL = errors.New("no audio url to play")
)
