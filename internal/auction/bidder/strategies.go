package bidder

import (
	"context"
	"math/rand"

	"auctionhouse/internal/auction"
)

// conservative nudges the high bid by a small step and refuses to
// commit more than a fraction of its remaining budget to one lot.
type conservative struct {
	participant string
}

func (b *conservative) Name() string { return b.participant }

func (b *conservative) Decide(ctx context.Context, snap auction.Snapshot) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	budget := snap.Budgets[b.participant]
	step := 1 + snap.CurrentHigh/10
	bid := snap.CurrentHigh + step

	// Keep powder dry while lots remain.
	limit := budget
	if snap.RoundsRemaining > 1 {
		limit = budget * 3 / 5
	}
	if bid > limit {
		return 0, nil
	}
	return bid, nil
}

// aggressive raises proportionally and will spend deep into its
// budget, scaling the raise by how many lots are still contested.
type aggressive struct {
	participant string
}

func (b *aggressive) Name() string { return b.participant }

func (b *aggressive) Decide(ctx context.Context, snap auction.Snapshot) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	budget := snap.Budgets[b.participant]
	if budget <= snap.CurrentHigh {
		return 0, nil
	}
	remaining := snap.RoundsRemaining
	if remaining < 1 {
		remaining = 1
	}
	raise := 1 + snap.CurrentHigh/4 + budget/(remaining*4)
	bid := snap.CurrentHigh + raise
	if bid > budget {
		bid = budget
	}
	return bid, nil
}

// random bids a seeded random raise in a bounded band, and sits out
// roughly a quarter of its turns.
type random struct {
	participant string
	rng         *rand.Rand
}

func newRandom(participant string, seed int64) *random {
	return &random{participant: participant, rng: rand.New(rand.NewSource(seed))}
}

func (b *random) Name() string { return b.participant }

func (b *random) Decide(ctx context.Context, snap auction.Snapshot) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if b.rng.Intn(4) == 0 {
		return 0, nil
	}
	budget := snap.Budgets[b.participant]
	band := budget / 10
	if band < 1 {
		band = 1
	}
	bid := snap.CurrentHigh + 1 + b.rng.Intn(band)
	if bid > budget {
		return 0, nil
	}
	return bid, nil
}
