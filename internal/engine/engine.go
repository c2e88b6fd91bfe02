// Package engine drives the auction core through its phases: it waits
// for the human's bid during TURN_HUMAN, invokes the bidder policies
// during the AI turns, and settles each round until the auction is
// finalized. The engine never holds the core lock while waiting.
package engine

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"auctionhouse/internal/auction"
	"auctionhouse/internal/auction/bidder"
)

type Config struct {
	// HumanTurnTimeout bounds the wait for the human's bid; on expiry
	// the turn is forfeited.
	HumanTurnTimeout time.Duration
	// AIDecideTimeout bounds one policy invocation; on expiry the turn
	// is a pass.
	AIDecideTimeout time.Duration
}

type Engine struct {
	core     *auction.Core
	policies map[string]bidder.Policy
	cfg      Config
	log      *log.Logger

	restart chan struct{}
}

func New(core *auction.Core, policies map[string]bidder.Policy, cfg Config, logger *log.Logger) *Engine {
	if cfg.HumanTurnTimeout <= 0 {
		cfg.HumanTurnTimeout = 30 * time.Second
	}
	if cfg.AIDecideTimeout <= 0 {
		cfg.AIDecideTimeout = 2 * time.Second
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Engine{
		core:     core,
		policies: policies,
		cfg:      cfg,
		log:      logger,
		restart:  make(chan struct{}, 1),
	}
}

// Kick wakes the engine after an external reset so a fresh auction
// starts. Safe to call at any time; never blocks.
func (e *Engine) Kick() {
	select {
	case e.restart <- struct{}{}:
	default:
	}
}

// Run drives auctions until ctx is cancelled. After an auction
// finalizes, Run parks until Kick (a reset) or cancellation.
func (e *Engine) Run(ctx context.Context) error {
	for {
		if err := e.runAuction(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.restart:
		}
	}
}

func (e *Engine) runAuction(ctx context.Context) error {
	// A reset issued mid-auction is absorbed by the pass already
	// running, but its wake token stays queued and triggers one more
	// call here after that pass finalizes. Nothing is left to drive
	// then: skip instead of re-logging a finished auction.
	if snap := e.core.Snapshot(); snap.Phase == auction.PhaseIdle && snap.RoundsRemaining == 0 {
		return nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.core.StartNextRound(); err != nil {
			if errors.Is(err, auction.ErrRoundsExhausted) {
				break
			}
			// A reset can race the driver mid-round; re-drive from the
			// observed phase rather than giving up.
			if !errors.Is(err, auction.ErrIllegalPhase) {
				return err
			}
			e.log.Printf("start round rejected: %v", err)
		}

		e.humanTurn(ctx)
		for _, id := range e.core.Snapshot().Sequence[1:] {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.aiTurn(ctx, id)
		}

		if err := e.core.SettleRound(); err != nil {
			e.log.Printf("settle rejected: %v", err)
		}
	}

	res, err := e.core.Finalize()
	if err != nil {
		e.log.Printf("finalize rejected: %v", err)
		return nil
	}
	e.log.Printf("champion: %s", res.Champion)
	return nil
}

// humanTurn waits for the human submission up to the turn timeout.
// The wait happens entirely outside the core lock: the core closes the
// turn channel once the human's bid is applied or forfeited.
func (e *Engine) humanTurn(ctx context.Context) {
	if e.core.Snapshot().Phase != auction.PhaseTurnHuman {
		return
	}

	timer := time.NewTimer(e.cfg.HumanTurnTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-e.core.HumanTurn():
		return
	case <-timer.C:
	}

	// Timeout: forfeit the turn. A submission that slipped in between
	// the timer firing and this call makes the forfeit a no-op.
	snap := e.core.Snapshot()
	if snap.Phase != auction.PhaseTurnHuman {
		return
	}
	if _, err := e.core.ApplyBid(snap.Sequence[0], 0); err != nil {
		e.log.Printf("human turn forfeit rejected: %v", err)
		return
	}
	e.log.Printf("round %d: human turn timed out, forfeited", snap.RoundID)
}

func (e *Engine) aiTurn(ctx context.Context, participant string) {
	snap := e.core.Snapshot()
	if !isTurnPhase(snap.Phase) || snap.Sequence[snap.TurnID] != participant {
		return
	}

	amount := e.decide(ctx, participant, snap)
	accepted, err := e.core.ApplyBid(participant, amount)
	if err != nil {
		e.log.Printf("round %d: %s bid rejected: %v", snap.RoundID, participant, err)
		return
	}
	if accepted {
		e.log.Printf("round %d: %s bid %d", snap.RoundID, participant, amount)
	}
}

// decide invokes the policy with a bounded deadline. A policy that
// errors, returns late, or is missing altogether is a pass.
func (e *Engine) decide(ctx context.Context, participant string, snap auction.Snapshot) int {
	pol := e.policies[participant]
	if pol == nil {
		return 0
	}

	dctx, cancel := context.WithTimeout(ctx, e.cfg.AIDecideTimeout)
	defer cancel()

	type result struct {
		amount int
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		a, err := pol.Decide(dctx, snap)
		ch <- result{a, err}
	}()

	select {
	case <-dctx.Done():
		e.log.Printf("round %d: %s decide timed out, passing", snap.RoundID, participant)
		return 0
	case r := <-ch:
		if r.err != nil {
			e.log.Printf("round %d: %s decide failed, passing: %v", snap.RoundID, participant, r.err)
			return 0
		}
		return r.amount
	}
}

func isTurnPhase(p auction.Phase) bool {
	switch p {
	case auction.PhaseTurnHuman, auction.PhaseTurnAI1, auction.PhaseTurnAI2, auction.PhaseTurnAI3:
		return true
	}
	return false
}
