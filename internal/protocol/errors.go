package protocol

const (
	// Transport/decode validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Auction rule layer.
	ErrIllegalPhase    = "E_ILLEGAL_PHASE"
	ErrStaleTurn       = "E_STALE_TURN"
	ErrNotYourTurn     = "E_NOT_YOUR_TURN"
	ErrInvalidBid      = "E_INVALID_BID"
	ErrRoundsExhausted = "E_ROUNDS_EXHAUSTED"
	ErrNotFinished     = "E_NOT_FINISHED"
	ErrInternal        = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrIllegalPhase:    {},
	ErrStaleTurn:       {},
	ErrNotYourTurn:     {},
	ErrInvalidBid:      {},
	ErrRoundsExhausted: {},
	ErrNotFinished:     {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
