package opencode

import (
	"encoding/json"
	"fmt"
)

// Names of the SessionError variants.
const (
	ErrorNameMessageAborted      = "MessageAbortedError"
	ErrorNameProviderAuth        = "ProviderAuthError"
	ErrorNameUnknown             = "UnknownError"
	ErrorNameMessageOutputLength = "MessageOutputLengthError"
)

// SessionError is an error reported by the server for a session or an
// assistant message. Data depends on Name: ProviderAuthError carries
// message and providerID, UnknownError carries message, the others carry
// arbitrary or no data.
type SessionError struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data,omitempty"`
}

type sessionErrorData struct {
	Message    string `json:"message"`
	ProviderID string `json:"providerID"`
}

func (e *SessionError) data() sessionErrorData {
	var d sessionErrorData
	if len(e.Data) > 0 {
		_ = json.Unmarshal(e.Data, &d)
	}
	return d
}

// Message returns data.message when the variant carries one.
func (e *SessionError) Message() string {
	return e.data().Message
}

// ProviderID returns data.providerID for ProviderAuthError.
func (e *SessionError) ProviderID() string {
	return e.data().ProviderID
}

func (e *SessionError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("%s: %s", e.Name, msg)
	}
	return e.Name
}

// decodeTagged reads the discriminator named tag from data and returns it
// together with a copy of data, so that the typed variant can be decoded on
// demand and unknown variants survive a round trip.
func decodeTagged(data []byte, tag string) (string, json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", nil, err
	}

	var value string
	if raw, ok := fields[tag]; ok {
		if err := json.Unmarshal(raw, &value); err != nil {
			return "", nil, fmt.Errorf("decoding %q discriminator: %w", tag, err)
		}
	}

	return value, append(json.RawMessage(nil), data...), nil
}

// variant decodes raw into a T after checking that the discriminator matches.
func variant[T any](raw json.RawMessage, got, want, kind string) (*T, error) {
	if got != want {
		return nil, fmt.Errorf("%s is %q, not %q", kind, got, want)
	}

	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}

// encodeTagged marshals v and sets the discriminator field tag to value.
func encodeTagged(v any, tag, value string) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	tagValue, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	fields[tag] = tagValue

	return json.Marshal(fields)
}

// rawOrNull returns raw, or JSON null when it is empty.
func rawOrNull(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
