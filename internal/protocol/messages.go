package protocol

import "time"

// BidRequest (client -> server): the human participant's bid for the
// current turn. submit_id makes retries idempotent.
type BidRequest struct {
	RoundID  int    `json:"round_id"`
	TurnID   int    `json:"turn_id"`
	Amount   int    `json:"amount"`
	SubmitID string `json:"submit_id"`
}

// BidAccepted (server -> client).
type BidAccepted struct {
	Accepted    bool   `json:"accepted"`
	RoundID     int    `json:"round_id"`
	TurnID      int    `json:"turn_id"`
	CurrentHigh int    `json:"current_high"`
	Duplicate   bool   `json:"duplicate,omitempty"`
	SubmitID    string `json:"submit_id"`
}

// ErrorResponse (server -> client) carries one of the E_* codes.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StateResponse (server -> client): point-in-time public snapshot.
type StateResponse struct {
	RoundID         int            `json:"round_id"`
	TurnID          int            `json:"turn_id"`
	RoundsTotal     int            `json:"rounds_total"`
	RoundsRemaining int            `json:"rounds_remaining"`
	Phase           string         `json:"phase"`
	CurrentHigh     int            `json:"current_high"`
	CurrentWinner   *string        `json:"current_winner"`
	Sequence        []string       `json:"sequence"`
	Budgets         map[string]int `json:"budgets"`
	Properties      map[string]int `json:"properties"`
	ServerTime      time.Time      `json:"server_time"`
}

// RoundOutcome is one entry of winners_by_round.
type RoundOutcome struct {
	Round  int    `json:"round"`
	Winner string `json:"winner,omitempty"`
	Price  int    `json:"price"`
}

// ParticipantTotals aggregates one participant's full-auction outcome.
type ParticipantTotals struct {
	Properties int `json:"properties"`
	Spent      int `json:"spent"`
}

// ResultsResponse (server -> client): final standings, available only
// after the last round settles.
type ResultsResponse struct {
	WinnersByRound []RoundOutcome               `json:"winners_by_round"`
	Totals         map[string]ParticipantTotals `json:"totals"`
	Champion       string                       `json:"champion"`
}

// SubscribeMsg (observer -> server): observer feed handshake.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

// WelcomeMsg (server -> observer).
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	RoundID         int    `json:"round_id"`
	RoundsTotal     int    `json:"rounds_total"`
}

// EventMsg (server -> observer): one audit event.
type EventMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	EventID         string `json:"event_id"`
	Seq             uint64 `json:"seq"`
	Time            string `json:"time"`
	Kind            string `json:"kind"`
	Round           int    `json:"round"`
	Turn            int    `json:"turn"`
	Participant     string `json:"participant,omitempty"`
	Amount          int    `json:"amount"`
	Detail          string `json:"detail,omitempty"`
}
