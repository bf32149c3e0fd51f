package settings

import (
	"bytes"
	"encoding/json"
)

// envelope is the wrapped form settings are written in.
type envelope struct {
	State   *envelopeState `json:"state"`
	Version int            `json:"version"`
}

type envelopeState struct {
	Settings Settings `json:"settings"`
}

// Encode wraps s in the {state:{settings},version} envelope.
func Encode(s Settings) ([]byte, error) {
	return json.Marshal(envelope{State: &envelopeState{Settings: Normalize(s)}})
}

// Decode reads settings written either wrapped in the envelope or as a raw
// settings object, or a JSON string holding either. It reports false when
// the payload is none of these.
func Decode(raw []byte) (Settings, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Settings{}, false
	}

	switch raw[0] {
	case '"':
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return Settings{}, false
		}
		return Decode([]byte(inner))
	case '{':
	default:
		return Settings{}, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Settings{}, false
	}

	if state, ok := fields["state"]; ok {
		var stateFields map[string]json.RawMessage
		if json.Unmarshal(state, &stateFields) == nil {
			if candidate, ok := stateFields["settings"]; ok && isObject(candidate) {
				if s, ok := decodePartial(candidate); ok {
					return s, true
				}
			}
		}
	}
	if _, ok := fields["units"]; ok {
		return decodePartial(raw)
	}
	return Settings{}, false
}

// DecodeObject reads a bare settings object of any shape, filling whatever
// it lacks from the defaults.
func DecodeObject(raw []byte) (Settings, bool) {
	if !isObject(raw) {
		return Settings{}, false
	}
	return decodePartial(raw)
}

func decodePartial(raw []byte) (Settings, bool) {
	var p Partial
	if err := json.Unmarshal(raw, &p); err != nil {
		return Settings{}, false
	}
	return p.Apply(Default()), true
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// DecodeOrDefault is Decode with a fallback to the defaults.
func DecodeOrDefault(raw []byte) Settings {
	if s, ok := Decode(raw); ok {
		return s
	}
	return Default()
}
