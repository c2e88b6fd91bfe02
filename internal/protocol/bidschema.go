package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Bid requests are schema-validated before they reach the core, so the
// rule layer only ever sees well-formed input. additionalProperties is
// false: unknown fields are rejected at the boundary.
const bidSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "round_id":  {"type": "integer", "minimum": 1},
    "turn_id":   {"type": "integer", "minimum": 0},
    "amount":    {"type": "integer", "minimum": 0},
    "submit_id": {"type": "string", "minLength": 1}
  },
  "required": ["round_id", "turn_id", "amount", "submit_id"],
  "additionalProperties": false
}`

var bidSchema = jsonschema.MustCompileString("bid.schema.json", bidSchemaJSON)

// ParseBidRequest decodes and validates a raw bid submission.
// The returned error message is safe to echo to the client.
func ParseBidRequest(raw []byte) (BidRequest, error) {
	var req BidRequest

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return req, fmt.Errorf("decode bid: %w", err)
	}
	if err := bidSchema.Validate(doc); err != nil {
		return req, fmt.Errorf("validate bid: %w", err)
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("decode bid: %w", err)
	}
	return req, nil
}
