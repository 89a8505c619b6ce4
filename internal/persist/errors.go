package persist

import "errors"

// Restore failures. Callers map every one of them to a non-blocking
// "failed to load" notice and keep their previous state.
var (
	ErrInvalidRecordFormat   = errors.New("invalid record format")
	ErrMissingOrMalformedFEN = errors.New("missing or malformed fen")
	ErrIllegalFEN            = errors.New("illegal fen")
	ErrCorruptRecordEncoding = errors.New("corrupt record encoding")
)
