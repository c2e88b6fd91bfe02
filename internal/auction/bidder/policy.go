// Package bidder holds the automated bidding strategies. Each policy
// sees only the public snapshot and returns the amount it wants to
// bid; 0 (or any non-raising amount) is a pass.
package bidder

import (
	"context"
	"fmt"

	"auctionhouse/internal/auction"
)

// Policy is the contract every automated bidder satisfies. Decide is
// called exactly once per turn and must respect ctx; the engine treats
// expiry or an error as a pass.
type Policy interface {
	Name() string
	Decide(ctx context.Context, snap auction.Snapshot) (int, error)
}

// Strategy names accepted by New.
const (
	StrategyConservative = "conservative"
	StrategyAggressive   = "aggressive"
	StrategyRandom       = "random"
)

// New creates the strategy for one participant. seed only matters for
// the random strategy; a fixed seed makes a run replayable.
func New(participant, strategy string, seed int64) (Policy, error) {
	switch strategy {
	case StrategyConservative:
		return &conservative{participant: participant}, nil
	case StrategyAggressive:
		return &aggressive{participant: participant}, nil
	case StrategyRandom:
		return newRandom(participant, seed), nil
	default:
		return nil, fmt.Errorf("unknown bidder strategy: %q", strategy)
	}
}
