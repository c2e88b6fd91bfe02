// Package httpapi is the HTTP boundary: it marshals requests and
// snapshots between the wire and the auction core, and maps core
// error conditions to protocol codes.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"auctionhouse/internal/auction"
	"auctionhouse/internal/protocol"
)

const maxBidBody = 4 * 1024

type Server struct {
	core *auction.Core
	log  *log.Logger

	// onReset runs after a successful reset (the server wires it to
	// restart the engine).
	onReset func()
}

func NewServer(core *auction.Core, onReset func(), logger *log.Logger) *Server {
	return &Server{core: core, onReset: onReset, log: logger}
}

func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/bid", s.handleBid)
	mux.HandleFunc("/v1/state", s.handleState)
	mux.HandleFunc("/v1/results", s.handleResults)
	mux.HandleFunc("/v1/reset", s.handleReset)
}

func (s *Server) handleBid(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBidBody))
	if err != nil {
		writeError(rw, http.StatusBadRequest, protocol.ErrProtoBadRequest, "read body")
		return
	}
	req, err := protocol.ParseBidRequest(raw)
	if err != nil {
		writeError(rw, http.StatusBadRequest, protocol.ErrProtoBadRequest, err.Error())
		return
	}

	receipt, err := s.core.SubmitHumanBid(auction.BidSubmission{
		SubmitID: req.SubmitID,
		RoundID:  req.RoundID,
		TurnID:   req.TurnID,
		Amount:   req.Amount,
	})
	if err != nil {
		status, code := mapCoreError(err)
		// A forfeited bid still advanced the turn; the rejection is
		// reported either way.
		writeError(rw, status, code, err.Error())
		return
	}

	writeJSON(rw, http.StatusOK, protocol.BidAccepted{
		Accepted:    true,
		RoundID:     receipt.RoundID,
		TurnID:      receipt.TurnID,
		CurrentHigh: receipt.CurrentHigh,
		Duplicate:   receipt.Duplicate,
		SubmitID:    req.SubmitID,
	})
}

func (s *Server) handleState(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	snap := s.core.Snapshot()
	var winner *string
	if snap.CurrentWinner != "" {
		w := snap.CurrentWinner
		winner = &w
	}
	writeJSON(rw, http.StatusOK, protocol.StateResponse{
		RoundID:         snap.RoundID,
		TurnID:          snap.TurnID,
		RoundsTotal:     snap.RoundsTotal,
		RoundsRemaining: snap.RoundsRemaining,
		Phase:           string(snap.Phase),
		CurrentHigh:     snap.CurrentHigh,
		CurrentWinner:   winner,
		Sequence:        snap.Sequence,
		Budgets:         snap.Budgets,
		Properties:      snap.Properties,
		ServerTime:      snap.ServerTime,
	})
}

func (s *Server) handleResults(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	res, err := s.core.Finalize()
	if err != nil {
		status, code := mapCoreError(err)
		writeError(rw, status, code, err.Error())
		return
	}

	winners := make([]protocol.RoundOutcome, len(res.WinnersByRound))
	for i, w := range res.WinnersByRound {
		winners[i] = protocol.RoundOutcome{Round: w.Round, Winner: w.Winner, Price: w.Price}
	}
	totals := make(map[string]protocol.ParticipantTotals, len(res.Totals))
	for id, t := range res.Totals {
		totals[id] = protocol.ParticipantTotals{Properties: t.Properties, Spent: t.Spent}
	}
	writeJSON(rw, http.StatusOK, protocol.ResultsResponse{
		WinnersByRound: winners,
		Totals:         totals,
		Champion:       res.Champion,
	})
}

func (s *Server) handleReset(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.core.Reset()
	if s.onReset != nil {
		s.onReset()
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true})
}

// MetricsHandler serves a minimal Prometheus text exposition.
func (s *Server) MetricsHandler(observers func() int) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		snap := s.core.Snapshot()
		fmt.Fprintf(rw, "# HELP auctionhouse_round Current round id.\n")
		fmt.Fprintf(rw, "# TYPE auctionhouse_round gauge\n")
		fmt.Fprintf(rw, "auctionhouse_round %d\n", snap.RoundID)

		fmt.Fprintf(rw, "# HELP auctionhouse_rounds_total Configured number of rounds.\n")
		fmt.Fprintf(rw, "# TYPE auctionhouse_rounds_total gauge\n")
		fmt.Fprintf(rw, "auctionhouse_rounds_total %d\n", snap.RoundsTotal)

		fmt.Fprintf(rw, "# HELP auctionhouse_current_high Leading bid for the current round.\n")
		fmt.Fprintf(rw, "# TYPE auctionhouse_current_high gauge\n")
		fmt.Fprintf(rw, "auctionhouse_current_high %d\n", snap.CurrentHigh)

		fmt.Fprintf(rw, "# HELP auctionhouse_budget Remaining budget per participant.\n")
		fmt.Fprintf(rw, "# TYPE auctionhouse_budget gauge\n")
		for _, id := range snap.Sequence {
			fmt.Fprintf(rw, "auctionhouse_budget{participant=%q} %d\n", id, snap.Budgets[id])
		}

		fmt.Fprintf(rw, "# HELP auctionhouse_properties Lots won per participant.\n")
		fmt.Fprintf(rw, "# TYPE auctionhouse_properties gauge\n")
		for _, id := range snap.Sequence {
			fmt.Fprintf(rw, "auctionhouse_properties{participant=%q} %d\n", id, snap.Properties[id])
		}

		if observers != nil {
			fmt.Fprintf(rw, "# HELP auctionhouse_observers Connected observer clients.\n")
			fmt.Fprintf(rw, "# TYPE auctionhouse_observers gauge\n")
			fmt.Fprintf(rw, "auctionhouse_observers %d\n", observers())
		}
	}
}

func mapCoreError(err error) (status int, code string) {
	switch {
	case errors.Is(err, auction.ErrStaleTurn):
		return http.StatusConflict, protocol.ErrStaleTurn
	case errors.Is(err, auction.ErrIllegalPhase):
		return http.StatusConflict, protocol.ErrIllegalPhase
	case errors.Is(err, auction.ErrNotYourTurn):
		return http.StatusConflict, protocol.ErrNotYourTurn
	case errors.Is(err, auction.ErrInvalidBid):
		return http.StatusUnprocessableEntity, protocol.ErrInvalidBid
	case errors.Is(err, auction.ErrRoundsExhausted):
		return http.StatusConflict, protocol.ErrRoundsExhausted
	case errors.Is(err, auction.ErrNotFinished):
		return http.StatusConflict, protocol.ErrNotFinished
	default:
		return http.StatusInternalServerError, protocol.ErrInternal
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, status int, code, msg string) {
	writeJSON(rw, status, protocol.ErrorResponse{Code: code, Message: msg})
}
