package auction

import "time"

// Phase is the current stage of a round's turn cycle or settlement.
// Advancement is strictly forward within a round.
type Phase string

const (
	PhaseIdle      Phase = "IDLE"
	PhaseTurnHuman Phase = "TURN_HUMAN"
	PhaseTurnAI1   Phase = "TURN_AI1"
	PhaseTurnAI2   Phase = "TURN_AI2"
	PhaseTurnAI3   Phase = "TURN_AI3"
	PhaseSettle    Phase = "SETTLE"
)

// Participant identifiers, in fixed turn order.
const (
	ParticipantHuman = "human"
	ParticipantAI1   = "ai1"
	ParticipantAI2   = "ai2"
	ParticipantAI3   = "ai3"
)

// DefaultSequence returns the canonical turn order.
func DefaultSequence() []string {
	return []string{ParticipantHuman, ParticipantAI1, ParticipantAI2, ParticipantAI3}
}

var turnPhases = []Phase{PhaseTurnHuman, PhaseTurnAI1, PhaseTurnAI2, PhaseTurnAI3}

// Event kinds recorded in the audit history.
const (
	EventReset       = "reset"
	EventRoundStart  = "round_start"
	EventBidAccepted = "bid_accepted"
	EventPass        = "pass"
	EventSettle      = "settle"
	EventFinalize    = "finalize"
)

// Event is one append-only audit entry. Entries are never mutated
// after append.
type Event struct {
	Seq         uint64    `json:"seq"`
	ID          string    `json:"event_id"`
	Time        time.Time `json:"time"`
	Kind        string    `json:"kind"`
	Round       int       `json:"round"`
	Turn        int       `json:"turn"`
	Participant string    `json:"participant,omitempty"`
	Amount      int       `json:"amount"`
	Detail      string    `json:"detail,omitempty"`
}

// BidSubmission is the human player's bid for one exact turn.
type BidSubmission struct {
	SubmitID string
	RoundID  int
	TurnID   int
	Amount   int
}

// PendingBid is the single-slot buffer for the human's submission,
// valid only for the exact current (round, turn).
type PendingBid struct {
	SubmitID string
	RoundID  int
	TurnID   int
	Amount   int
}

// BidReceipt reports the outcome of a human submission.
type BidReceipt struct {
	RoundID     int
	TurnID      int
	CurrentHigh int
	Duplicate   bool
}

// Snapshot is a consistent point-in-time copy of the public state.
type Snapshot struct {
	RoundID         int
	TurnID          int
	RoundsTotal     int
	RoundsRemaining int
	Phase           Phase
	CurrentHigh     int
	CurrentWinner   string // empty when no valid bid this round
	Sequence        []string
	Budgets         map[string]int
	Properties      map[string]int
	ServerTime      time.Time
}

// RoundOutcome records one settled round. Winner is empty for an
// unsold lot (price 0).
type RoundOutcome struct {
	Round  int    `json:"round"`
	Winner string `json:"winner,omitempty"`
	Price  int    `json:"price"`
}

// Totals aggregates one participant's full-auction outcome.
type Totals struct {
	Properties int `json:"properties"`
	Spent      int `json:"spent"`
}

// Results is the final summary, computed exactly once after the last
// round settles.
type Results struct {
	WinnersByRound []RoundOutcome    `json:"winners_by_round"`
	Totals         map[string]Totals `json:"totals"`
	Champion       string            `json:"champion"`
}
