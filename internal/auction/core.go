package auction

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Rule-layer error conditions. None is fatal: every one is recoverable
// at the operation-call boundary.
var (
	ErrIllegalPhase    = errors.New("illegal phase transition")
	ErrStaleTurn       = errors.New("stale round/turn")
	ErrNotYourTurn     = errors.New("not this participant's turn")
	ErrInvalidBid      = errors.New("invalid bid")
	ErrRoundsExhausted = errors.New("rounds exhausted")
	ErrNotFinished     = errors.New("auction not finished")
)

// Config fixes the auction's shape at construction time.
type Config struct {
	RoundsTotal   int
	InitialBudget int
	Sequence      []string // turn order; index 0 is the human
}

type submitRecord struct {
	round  int
	turn   int
	amount int
	err    error
}

// Core owns the ledger and is its sole mutator. Every operation runs
// as one atomic unit under a single coarse lock, so concurrent callers
// observe only before/after states.
type Core struct {
	mu  sync.Mutex
	log *log.Logger
	cfg Config

	roundID int
	turnID  int
	phase   Phase
	settled bool // current round settled, awaiting the next

	budgets    map[string]int
	properties map[string]int

	currentHigh   int
	currentWinner string

	pending  *PendingBid
	accepted map[string]submitRecord // submit_id -> recorded outcome, current round

	history  []Event
	outcomes []RoundOutcome
	results  *Results
	eventSeq uint64

	// sink receives every audit event while the lock is held; it must
	// not block (sinks enqueue and return).
	sink func(Event)

	// humanDone is closed when the current round's human turn ends,
	// replaced on round start.
	humanDone chan struct{}
}

func New(cfg Config, logger *log.Logger) (*Core, error) {
	if cfg.RoundsTotal <= 0 {
		return nil, fmt.Errorf("rounds_total must be positive, got %d", cfg.RoundsTotal)
	}
	if cfg.InitialBudget < 0 {
		return nil, fmt.Errorf("initial_budget must be non-negative, got %d", cfg.InitialBudget)
	}
	if len(cfg.Sequence) == 0 {
		cfg.Sequence = DefaultSequence()
	}
	if len(cfg.Sequence) != len(turnPhases) {
		return nil, fmt.Errorf("sequence must have %d participants, got %d", len(turnPhases), len(cfg.Sequence))
	}
	seen := make(map[string]bool, len(cfg.Sequence))
	for _, id := range cfg.Sequence {
		if id == "" || seen[id] {
			return nil, fmt.Errorf("sequence ids must be distinct and non-empty: %v", cfg.Sequence)
		}
		seen[id] = true
	}
	c := &Core{
		log: logger,
		cfg: cfg,
	}
	c.resetLocked()
	return c, nil
}

// SetAuditSink installs the audit fan-out. Call before the auction
// starts; fn is invoked under the core lock and must not block.
func (c *Core) SetAuditSink(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = fn
}

func (c *Core) resetLocked() {
	c.roundID = 0
	c.turnID = 0
	c.phase = PhaseIdle
	c.settled = false

	c.budgets = make(map[string]int, len(c.cfg.Sequence))
	c.properties = make(map[string]int, len(c.cfg.Sequence))
	for _, id := range c.cfg.Sequence {
		c.budgets[id] = c.cfg.InitialBudget
		c.properties[id] = 0
	}

	c.currentHigh = 0
	c.currentWinner = ""
	c.pending = nil
	c.accepted = make(map[string]submitRecord)

	c.history = nil
	c.outcomes = nil
	c.results = nil
	c.eventSeq = 0
	c.humanDone = make(chan struct{})
}

// Reset restores the ledger to construction-time values.
func (c *Core) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.emitLocked(EventReset, "", 0, fmt.Sprintf("rounds_total=%d initial_budget=%d", c.cfg.RoundsTotal, c.cfg.InitialBudget))
	if c.log != nil {
		c.log.Printf("reset: rounds_total=%d initial_budget=%d", c.cfg.RoundsTotal, c.cfg.InitialBudget)
	}
}

// StartNextRound advances to the next round and clears per-round state.
func (c *Core) StartNextRound() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseIdle && !(c.phase == PhaseSettle && c.settled) {
		return fmt.Errorf("%w: start round in phase %s", ErrIllegalPhase, c.phase)
	}
	if c.roundID >= c.cfg.RoundsTotal {
		return fmt.Errorf("%w: %d rounds already played", ErrRoundsExhausted, c.cfg.RoundsTotal)
	}

	c.roundID++
	c.turnID = 0
	c.phase = PhaseTurnHuman
	c.settled = false
	c.currentHigh = 0
	c.currentWinner = ""
	c.pending = nil
	c.accepted = make(map[string]submitRecord)
	c.humanDone = make(chan struct{})

	c.emitLocked(EventRoundStart, "", 0, "")
	if c.log != nil {
		c.log.Printf("round %d started", c.roundID)
	}
	return nil
}

// HumanTurn returns a channel closed when the current round's human
// turn completes (accepted, forfeited, or timed out by the engine).
func (c *Core) HumanTurn() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.humanDone
}

// SubmitHumanBid validates and applies the human's bid for the exact
// current (round, turn). A duplicate submit_id for an already recorded
// turn replays the recorded outcome without double effect. An amount
// that fails the bid rule forfeits the turn: the turn advances and the
// leaderboard is untouched.
func (c *Core) SubmitHumanBid(s BidSubmission) (BidReceipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rec, ok := c.accepted[s.SubmitID]; ok && rec.round == s.RoundID && rec.turn == s.TurnID {
		return BidReceipt{
			RoundID:     c.roundID,
			TurnID:      c.turnID,
			CurrentHigh: c.currentHigh,
			Duplicate:   true,
		}, rec.err
	}

	if s.RoundID != c.roundID || s.TurnID != c.turnID {
		return BidReceipt{}, fmt.Errorf("%w: got round %d turn %d, current round %d turn %d",
			ErrStaleTurn, s.RoundID, s.TurnID, c.roundID, c.turnID)
	}
	if c.phase != PhaseTurnHuman {
		return BidReceipt{}, fmt.Errorf("%w: human bid in phase %s", ErrIllegalPhase, c.phase)
	}

	human := c.cfg.Sequence[0]
	c.pending = &PendingBid{SubmitID: s.SubmitID, RoundID: s.RoundID, TurnID: s.TurnID, Amount: s.Amount}

	if err := c.checkAmountLocked(human, s.Amount); err != nil {
		// Forfeit: the turn advances so an under-funded or low bid
		// never stalls the round, but the rejection is still reported.
		c.pending = nil
		c.accepted[s.SubmitID] = submitRecord{round: s.RoundID, turn: s.TurnID, amount: s.Amount, err: err}
		c.emitLocked(EventPass, human, s.Amount, err.Error())
		c.advanceTurnLocked()
		return BidReceipt{RoundID: c.roundID, TurnID: c.turnID, CurrentHigh: c.currentHigh}, err
	}

	c.pending = nil
	c.currentHigh = s.Amount
	c.currentWinner = human
	c.accepted[s.SubmitID] = submitRecord{round: s.RoundID, turn: s.TurnID, amount: s.Amount}
	c.emitLocked(EventBidAccepted, human, s.Amount, "submit_id="+s.SubmitID)
	c.advanceTurnLocked()

	return BidReceipt{RoundID: c.roundID, TurnID: c.turnID, CurrentHigh: c.currentHigh}, nil
}

// ApplyBid evaluates a bid from the participant whose turn it is. An
// amount that fails the bid rule counts as a pass: the turn advances
// and accepted stays false. The error is non-nil only for out-of-order
// calls (wrong phase or wrong participant), which leave state
// unchanged.
func (c *Core) ApplyBid(participant string, amount int) (accepted bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.inTurnPhaseLocked() {
		return false, fmt.Errorf("%w: bid in phase %s", ErrIllegalPhase, c.phase)
	}
	if c.cfg.Sequence[c.turnID] != participant {
		return false, fmt.Errorf("%w: %s bid during %s's turn", ErrNotYourTurn, participant, c.cfg.Sequence[c.turnID])
	}

	if err := c.checkAmountLocked(participant, amount); err != nil {
		c.emitLocked(EventPass, participant, amount, err.Error())
		c.advanceTurnLocked()
		return false, nil
	}

	c.currentHigh = amount
	c.currentWinner = participant
	c.emitLocked(EventBidAccepted, participant, amount, "")
	c.advanceTurnLocked()
	return true, nil
}

// SettleRound awards the lot to the round's current winner, or records
// an unsold lot when no valid bid was made.
func (c *Core) SettleRound() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseSettle || c.settled {
		return fmt.Errorf("%w: settle in phase %s", ErrIllegalPhase, c.phase)
	}

	price := 0
	if c.currentWinner != "" {
		price = c.currentHigh
		c.budgets[c.currentWinner] -= price
		c.properties[c.currentWinner]++
	}
	c.outcomes = append(c.outcomes, RoundOutcome{Round: c.roundID, Winner: c.currentWinner, Price: price})
	c.settled = true

	c.emitLocked(EventSettle, c.currentWinner, price, "")
	if c.log != nil {
		if c.currentWinner == "" {
			c.log.Printf("round %d settled: unsold", c.roundID)
		} else {
			c.log.Printf("round %d settled: winner=%s price=%d", c.roundID, c.currentWinner, price)
		}
	}

	if c.roundID == c.cfg.RoundsTotal {
		c.phase = PhaseIdle
	}
	return nil
}

// Snapshot returns a consistent copy of all public fields.
func (c *Core) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	budgets := make(map[string]int, len(c.budgets))
	for id, b := range c.budgets {
		budgets[id] = b
	}
	properties := make(map[string]int, len(c.properties))
	for id, n := range c.properties {
		properties[id] = n
	}
	seq := make([]string, len(c.cfg.Sequence))
	copy(seq, c.cfg.Sequence)

	return Snapshot{
		RoundID:         c.roundID,
		TurnID:          c.turnID,
		RoundsTotal:     c.cfg.RoundsTotal,
		RoundsRemaining: c.cfg.RoundsTotal - c.roundID,
		Phase:           c.phase,
		CurrentHigh:     c.currentHigh,
		CurrentWinner:   c.currentWinner,
		Sequence:        seq,
		Budgets:         budgets,
		Properties:      properties,
		ServerTime:      time.Now().UTC(),
	}
}

// History returns a copy of the audit history.
func (c *Core) History() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.history))
	copy(out, c.history)
	return out
}

// Finalize computes the final standings once all rounds are settled.
// It is idempotent: later calls return the stored result.
func (c *Core) Finalize() (Results, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.results != nil {
		return *c.results, nil
	}
	if c.roundID != c.cfg.RoundsTotal || !c.settled {
		return Results{}, fmt.Errorf("%w: %d of %d rounds settled", ErrNotFinished, len(c.outcomes), c.cfg.RoundsTotal)
	}

	totals := make(map[string]Totals, len(c.cfg.Sequence))
	for _, id := range c.cfg.Sequence {
		totals[id] = Totals{
			Properties: c.properties[id],
			Spent:      c.cfg.InitialBudget - c.budgets[id],
		}
	}

	// Champion: most properties, then highest remaining budget, then
	// earliest position in the sequence.
	champion := c.cfg.Sequence[0]
	for _, id := range c.cfg.Sequence[1:] {
		switch {
		case c.properties[id] > c.properties[champion]:
			champion = id
		case c.properties[id] == c.properties[champion] && c.budgets[id] > c.budgets[champion]:
			champion = id
		}
	}

	winners := make([]RoundOutcome, len(c.outcomes))
	copy(winners, c.outcomes)

	c.results = &Results{
		WinnersByRound: winners,
		Totals:         totals,
		Champion:       champion,
	}
	c.emitLocked(EventFinalize, champion, 0, "")
	if c.log != nil {
		c.log.Printf("auction finished: champion=%s", champion)
	}
	return *c.results, nil
}

func (c *Core) inTurnPhaseLocked() bool {
	for _, p := range turnPhases {
		if c.phase == p {
			return true
		}
	}
	return false
}

// checkAmountLocked enforces the bid acceptance rule: strictly above
// the current high, and within the bidder's remaining budget.
func (c *Core) checkAmountLocked(participant string, amount int) error {
	if amount <= c.currentHigh {
		return fmt.Errorf("%w: amount %d is not above current high %d", ErrInvalidBid, amount, c.currentHigh)
	}
	if amount > c.budgets[participant] {
		return fmt.Errorf("%w: amount %d exceeds budget %d", ErrInvalidBid, amount, c.budgets[participant])
	}
	return nil
}

func (c *Core) advanceTurnLocked() {
	if c.phase == PhaseTurnHuman {
		close(c.humanDone)
	}
	if c.turnID+1 < len(c.cfg.Sequence) {
		c.turnID++
		c.phase = turnPhases[c.turnID]
		return
	}
	c.phase = PhaseSettle
}

func (c *Core) emitLocked(kind, participant string, amount int, detail string) {
	c.eventSeq++
	e := Event{
		Seq:         c.eventSeq,
		ID:          uuid.NewString(),
		Time:        time.Now().UTC(),
		Kind:        kind,
		Round:       c.roundID,
		Turn:        c.turnID,
		Participant: participant,
		Amount:      amount,
		Detail:      detail,
	}
	c.history = append(c.history, e)
	if c.sink != nil {
		c.sink(e)
	}
}
