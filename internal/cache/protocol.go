package cache

// Sync protocol between peers. Every transport message carries exactly one
// JSON object {"key": ..., "value": ...}; there is no request/response
// pairing and no framing beyond the transport's own message boundaries.

import (
	"encoding/json"
	"unicode/utf8"
)

// SyncMessage is the wire form of an Entry.
type SyncMessage struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// wireMessage distinguishes a missing field from an empty one.
type wireMessage struct {
	Key   *string `json:"key"`
	Value *string `json:"value"`
}

// DecodeError reports a message that could not be parsed into an Entry.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return "cache: decode: " + e.Reason + ": " + e.Err.Error()
	}
	return "cache: decode: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Encodable reports whether e survives Encode and Decode unchanged, which
// requires both key and value to be valid UTF-8.
func Encodable(e Entry) bool {
	return utf8.ValidString(e.Key) && utf8.ValidString(e.Value)
}

// Encode returns the wire form of e. The output is deterministic. Invalid
// UTF-8 is replaced with U+FFFD; check Encodable first.
func Encode(e Entry) []byte {
	// Marshaling a struct of strings cannot fail.
	b, _ := json.Marshal(SyncMessage{Key: e.Key, Value: e.Value})
	return b
}

// Decode parses one wire message. Malformed input yields a *DecodeError.
func Decode(b []byte) (Entry, error) {
	if !utf8.Valid(b) {
		return Entry{}, &DecodeError{Reason: "payload is not UTF-8 text"}
	}
	var m wireMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return Entry{}, &DecodeError{Reason: "malformed message", Err: err}
	}
	if m.Key == nil {
		return Entry{}, &DecodeError{Reason: "missing key"}
	}
	if m.Value == nil {
		return Entry{}, &DecodeError{Reason: "missing value"}
	}
	return Entry{Key: *m.Key, Value: *m.Value}, nil
}
