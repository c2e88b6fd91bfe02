package bidder

import (
	"context"
	"testing"

	"auctionhouse/internal/auction"
)

func snapWith(high, budget, remaining int) auction.Snapshot {
	return auction.Snapshot{
		RoundID:         1,
		RoundsTotal:     remaining + 1,
		RoundsRemaining: remaining,
		Phase:           auction.PhaseTurnAI1,
		CurrentHigh:     high,
		Sequence:        auction.DefaultSequence(),
		Budgets: map[string]int{
			auction.ParticipantHuman: budget,
			auction.ParticipantAI1:   budget,
			auction.ParticipantAI2:   budget,
			auction.ParticipantAI3:   budget,
		},
	}
}

func TestUnknownStrategyRejected(t *testing.T) {
	if _, err := New(auction.ParticipantAI1, "clairvoyant", 0); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestConservativeRaisesOrPasses(t *testing.T) {
	pol, err := New(auction.ParticipantAI1, StrategyConservative, 0)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	bid, err := pol.Decide(context.Background(), snapWith(50, 1000, 5))
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if bid <= 50 {
		t.Fatalf("bid %d does not raise current high 50", bid)
	}
	if bid > 1000 {
		t.Fatalf("bid %d exceeds budget", bid)
	}

	// A hot lot against a thin budget is a pass.
	bid, err = pol.Decide(context.Background(), snapWith(90, 100, 5))
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if bid != 0 {
		t.Fatalf("expected pass, got %d", bid)
	}
}

func TestAggressiveNeverExceedsBudget(t *testing.T) {
	pol, err := New(auction.ParticipantAI2, StrategyAggressive, 0)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for high := 0; high < 200; high += 7 {
		bid, err := pol.Decide(context.Background(), snapWith(high, 120, 3))
		if err != nil {
			t.Fatalf("decide: %v", err)
		}
		if bid > 120 {
			t.Fatalf("high=%d: bid %d exceeds budget 120", high, bid)
		}
		if bid != 0 && bid <= high {
			t.Fatalf("high=%d: non-pass bid %d does not raise", high, bid)
		}
	}
}

func TestRandomIsReplayableBySeed(t *testing.T) {
	a := newRandom(auction.ParticipantAI3, 42)
	b := newRandom(auction.ParticipantAI3, 42)

	for i := 0; i < 50; i++ {
		snap := snapWith(i*3, 500, 4)
		x, err := a.Decide(context.Background(), snap)
		if err != nil {
			t.Fatalf("decide a: %v", err)
		}
		y, err := b.Decide(context.Background(), snap)
		if err != nil {
			t.Fatalf("decide b: %v", err)
		}
		if x != y {
			t.Fatalf("step %d: same seed diverged (%d vs %d)", i, x, y)
		}
		if x > 500 {
			t.Fatalf("bid %d exceeds budget", x)
		}
	}
}

func TestDecideHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, strategy := range []string{StrategyConservative, StrategyAggressive, StrategyRandom} {
		pol, err := New(auction.ParticipantAI1, strategy, 7)
		if err != nil {
			t.Fatalf("new %s: %v", strategy, err)
		}
		if _, err := pol.Decide(ctx, snapWith(10, 100, 2)); err == nil {
			t.Fatalf("%s: expected context error", strategy)
		}
	}
}
