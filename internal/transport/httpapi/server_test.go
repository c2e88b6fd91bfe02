package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"auctionhouse/internal/auction"
	"auctionhouse/internal/protocol"
)

func newTestServer(t *testing.T, rounds, budget int) (*auction.Core, *httptest.Server, *int) {
	t.Helper()
	core, err := auction.New(auction.Config{RoundsTotal: rounds, InitialBudget: budget}, nil)
	if err != nil {
		t.Fatalf("new core: %v", err)
	}
	resets := 0
	api := NewServer(core, func() { resets++ }, nil)
	mux := http.NewServeMux()
	api.Register(mux)
	mux.HandleFunc("/metrics", api.MetricsHandler(nil))
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return core, ts, &resets
}

func postBid(t *testing.T, ts *httptest.Server, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/v1/bid", "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("post bid: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func TestBidRoundTrip(t *testing.T) {
	core, ts, _ := newTestServer(t, 1, 100)
	if err := core.StartNextRound(); err != nil {
		t.Fatalf("start round: %v", err)
	}

	resp, body := postBid(t, ts, `{"round_id":1,"turn_id":0,"amount":50,"submit_id":"s1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var acc protocol.BidAccepted
	if err := json.Unmarshal(body, &acc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !acc.Accepted || acc.CurrentHigh != 50 || acc.Duplicate {
		t.Fatalf("response %+v", acc)
	}

	// Retry with the same submit_id: idempotent success.
	resp, body = postBid(t, ts, `{"round_id":1,"turn_id":0,"amount":50,"submit_id":"s1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("duplicate status = %d, body %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &acc); err != nil {
		t.Fatalf("decode duplicate: %v", err)
	}
	if !acc.Duplicate {
		t.Fatalf("duplicate not flagged: %+v", acc)
	}
}

func TestBidRejectsUnknownField(t *testing.T) {
	core, ts, _ := newTestServer(t, 1, 100)
	if err := core.StartNextRound(); err != nil {
		t.Fatalf("start round: %v", err)
	}
	resp, body := postBid(t, ts, `{"round_id":1,"turn_id":0,"amount":50,"submit_id":"s1","extra":1}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var e protocol.ErrorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("code = %s", e.Code)
	}
}

func TestBidErrorMapping(t *testing.T) {
	core, ts, _ := newTestServer(t, 1, 100)
	if err := core.StartNextRound(); err != nil {
		t.Fatalf("start round: %v", err)
	}

	// Stale round.
	resp, body := postBid(t, ts, `{"round_id":2,"turn_id":0,"amount":50,"submit_id":"s1"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("stale status = %d, body %s", resp.StatusCode, body)
	}
	var e protocol.ErrorResponse
	_ = json.Unmarshal(body, &e)
	if e.Code != protocol.ErrStaleTurn {
		t.Fatalf("stale code = %s", e.Code)
	}

	// Invalid amount: reported, and the turn forfeits.
	resp, body = postBid(t, ts, `{"round_id":1,"turn_id":0,"amount":0,"submit_id":"s2"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("invalid status = %d, body %s", resp.StatusCode, body)
	}
	_ = json.Unmarshal(body, &e)
	if e.Code != protocol.ErrInvalidBid {
		t.Fatalf("invalid code = %s", e.Code)
	}
	if core.Snapshot().Phase != auction.PhaseTurnAI1 {
		t.Fatalf("turn did not forfeit, phase=%s", core.Snapshot().Phase)
	}
}

func TestStateEndpoint(t *testing.T) {
	core, ts, _ := newTestServer(t, 2, 100)
	if err := core.StartNextRound(); err != nil {
		t.Fatalf("start round: %v", err)
	}

	resp, err := http.Get(ts.URL + "/v1/state")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var st protocol.StateResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.RoundID != 1 || st.RoundsTotal != 2 || st.RoundsRemaining != 1 {
		t.Fatalf("state %+v", st)
	}
	if st.Phase != string(auction.PhaseTurnHuman) {
		t.Fatalf("phase = %s", st.Phase)
	}
	if st.CurrentWinner != nil {
		t.Fatalf("current_winner = %v, want null", *st.CurrentWinner)
	}
	if len(st.Sequence) != 4 || st.Sequence[0] != auction.ParticipantHuman {
		t.Fatalf("sequence %v", st.Sequence)
	}
	if st.Budgets[auction.ParticipantAI2] != 100 {
		t.Fatalf("budgets %v", st.Budgets)
	}
	if st.ServerTime.IsZero() {
		t.Fatal("server_time missing")
	}
}

func TestResultsBeforeFinishConflicts(t *testing.T) {
	_, ts, _ := newTestServer(t, 1, 100)
	resp, err := http.Get(ts.URL + "/v1/results")
	if err != nil {
		t.Fatalf("get results: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var e protocol.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Code != protocol.ErrNotFinished {
		t.Fatalf("code = %s", e.Code)
	}
}

func TestResultsAfterAuction(t *testing.T) {
	core, ts, _ := newTestServer(t, 1, 100)
	if err := core.StartNextRound(); err != nil {
		t.Fatalf("start round: %v", err)
	}
	if _, err := core.SubmitHumanBid(auction.BidSubmission{SubmitID: "s1", RoundID: 1, TurnID: 0, Amount: 25}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	for _, ai := range []string{auction.ParticipantAI1, auction.ParticipantAI2, auction.ParticipantAI3} {
		if _, err := core.ApplyBid(ai, 0); err != nil {
			t.Fatalf("%s: %v", ai, err)
		}
	}
	if err := core.SettleRound(); err != nil {
		t.Fatalf("settle: %v", err)
	}

	resp, err := http.Get(ts.URL + "/v1/results")
	if err != nil {
		t.Fatalf("get results: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var res protocol.ResultsResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Champion != auction.ParticipantHuman {
		t.Fatalf("champion = %s", res.Champion)
	}
	if res.Totals[auction.ParticipantHuman].Spent != 25 {
		t.Fatalf("totals %+v", res.Totals)
	}
}

func TestResetEndpoint(t *testing.T) {
	core, ts, resets := newTestServer(t, 1, 100)
	if err := core.StartNextRound(); err != nil {
		t.Fatalf("start round: %v", err)
	}

	resp, err := http.Post(ts.URL+"/v1/reset", "application/json", nil)
	if err != nil {
		t.Fatalf("post reset: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if *resets != 1 {
		t.Fatalf("onReset ran %d times", *resets)
	}
	if snap := core.Snapshot(); snap.RoundID != 0 || snap.Phase != auction.PhaseIdle {
		t.Fatalf("state after reset: round=%d phase=%s", snap.RoundID, snap.Phase)
	}
}

func TestMethodsEnforced(t *testing.T) {
	_, ts, _ := newTestServer(t, 1, 100)
	resp, err := http.Get(ts.URL + "/v1/bid")
	if err != nil {
		t.Fatalf("get bid: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /v1/bid status = %d", resp.StatusCode)
	}
	resp, err = http.Post(ts.URL+"/v1/state", "application/json", nil)
	if err != nil {
		t.Fatalf("post state: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST /v1/state status = %d", resp.StatusCode)
	}
}

func TestMetricsExposition(t *testing.T) {
	core, ts, _ := newTestServer(t, 4, 250)
	if err := core.StartNextRound(); err != nil {
		t.Fatalf("start round: %v", err)
	}

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	out := buf.String()

	for _, want := range []string{
		"auctionhouse_round 1",
		"auctionhouse_rounds_total 4",
		fmt.Sprintf("auctionhouse_budget{participant=%q} 250", auction.ParticipantHuman),
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("metrics missing %q in:\n%s", want, out)
		}
	}
}
