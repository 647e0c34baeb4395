package telnet

import "errors"

// Error kinds from §7. Every peer-originated anomaly is recovered locally
// and never escapes the worker loop (see interpreter.go); these sentinels
// exist so adapters can classify whatever reaches EncounteredError, and so
// builder/API misuse can be identified with errors.Is.
var (
	// ErrProtocolViolation marks a malformed subnegotiation or unexpected
	// structural byte. Recovery: the current subnegotiation buffer is
	// dropped, logged at warning, and the session continues. A stray SE
	// outside any subnegotiation is the exception: it is logged at debug.
	ErrProtocolViolation = errors.New("telnet: protocol violation")

	// ErrUnsupportedOption marks a DO/WILL for an option no registered
	// plugin claims. Recovery: an automatic WONT/DONT is sent.
	ErrUnsupportedOption = errors.New("telnet: unsupported option")

	// ErrCallbackFailure wraps a panic or error raised from user-supplied
	// callback code. Recovery: logged, the worker advances past the event.
	ErrCallbackFailure = errors.New("telnet: callback failure")

	// ErrInvalidConfiguration marks a builder-time contradiction: duplicate
	// option codes, a plugin dependency that was never registered, etc.
	// This fails Build() outright.
	ErrInvalidConfiguration = errors.New("telnet: invalid configuration")

	// ErrPostDisposalUse marks an inbound call made after Dispose.
	ErrPostDisposalUse = errors.New("telnet: use after dispose")
)
