package protocol

import (
	"strings"
	"testing"
)

func TestParseBidRequestValid(t *testing.T) {
	req, err := ParseBidRequest([]byte(`{
	  "round_id": 3,
	  "turn_id": 0,
	  "amount": 120,
	  "submit_id": "c0ffee"
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if req.RoundID != 3 || req.TurnID != 0 || req.Amount != 120 || req.SubmitID != "c0ffee" {
		t.Fatalf("parsed %+v", req)
	}
}

func TestParseBidRequestRejectsUnknownFields(t *testing.T) {
	_, err := ParseBidRequest([]byte(`{
	  "round_id": 1,
	  "turn_id": 0,
	  "amount": 10,
	  "submit_id": "x",
	  "sneaky": true
	}`))
	if err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestParseBidRequestRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing submit_id", `{"round_id":1,"turn_id":0,"amount":10}`},
		{"empty submit_id", `{"round_id":1,"turn_id":0,"amount":10,"submit_id":""}`},
		{"zero round", `{"round_id":0,"turn_id":0,"amount":10,"submit_id":"x"}`},
		{"negative amount", `{"round_id":1,"turn_id":0,"amount":-5,"submit_id":"x"}`},
		{"negative turn", `{"round_id":1,"turn_id":-1,"amount":5,"submit_id":"x"}`},
		{"float amount", `{"round_id":1,"turn_id":0,"amount":5.5,"submit_id":"x"}`},
		{"not json", `{`},
		{"wrong type", `{"round_id":"1","turn_id":0,"amount":5,"submit_id":"x"}`},
	}
	for _, tc := range cases {
		if _, err := ParseBidRequest([]byte(tc.body)); err == nil {
			t.Fatalf("%s: accepted", tc.name)
		}
	}
}

func TestKnownCodes(t *testing.T) {
	for _, code := range []string{
		ErrProtoBadRequest, ErrIllegalPhase, ErrStaleTurn, ErrNotYourTurn,
		ErrInvalidBid, ErrRoundsExhausted, ErrNotFinished, ErrInternal,
	} {
		if !IsKnownCode(code) {
			t.Fatalf("%s not known", code)
		}
		if !strings.HasPrefix(code, "E_") {
			t.Fatalf("%s is not an E_ code", code)
		}
	}
	if IsKnownCode("E_NOPE") {
		t.Fatal("unknown code accepted")
	}
	if !IsKnownCode("") {
		t.Fatal("empty code must be accepted")
	}
}
