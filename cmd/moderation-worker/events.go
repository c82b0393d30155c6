package main

import (
	"encoding/json"
	"fmt"
)

// gcsFinalizeEvent carries the fields of a storage object-finalized
// notification the worker needs.
type gcsFinalizeEvent struct {
	Bucket   string            `json:"bucket"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata"`
}

// cloudEventEnvelope is Eventarc's structured content mode, where the
// storage payload is nested under "data".
type cloudEventEnvelope struct {
	Data gcsFinalizeEvent `json:"data"`
}

// parseFinalizeEvent accepts both binary mode (payload is the body) and
// structured mode (payload under "data"). An event without bucket or name
// is returned as is for the caller to skip.
func parseFinalizeEvent(body []byte) (gcsFinalizeEvent, error) {
	var ev gcsFinalizeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("decode event: %w", err)
	}
	if ev.Bucket != "" && ev.Name != "" {
		return ev, nil
	}

	var envelope cloudEventEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Data.Bucket != "" && envelope.Data.Name != "" {
		return envelope.Data, nil
	}
	return ev, nil
}
