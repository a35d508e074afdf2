package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed reports a client payload that is not a JSON object with a
// string "type" field.
var ErrMalformed = errors.New("malformed client message")

// ClientMessage is a message sent by the editor to the backend.
type ClientMessage interface {
	Kind() string
	clientMessage()
}

// Auth opens the protocol handshake.
type Auth struct {
	DocID     string          `json:"docid,omitempty"`
	Token     string          `json:"token,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	User      json.RawMessage `json:"user,omitempty"`
}

// IsSaveLock asks whether another editor holds the save lock.
type IsSaveLock struct{}

// SaveChanges carries the editor's pending change set.
type SaveChanges struct {
	Changes   json.RawMessage `json:"changes,omitempty"`
	StartSave bool            `json:"startSaveChanges,omitempty"`
	EndSave   bool            `json:"endSaveChanges,omitempty"`
	IsCoAuth  bool            `json:"isCoAuthoring,omitempty"`
	DeleteIdx *int            `json:"deleteIndex,omitempty"`
}

// GetLock requests a lock on a document block.
type GetLock struct {
	Block json.RawMessage `json:"block"`
}

// BlockKey renders the requested block as a lock map key. String blocks are
// used verbatim; structured blocks use their compact JSON text.
func (m GetLock) BlockKey() string {
	raw := bytes.TrimSpace(m.Block)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// Unknown is any message whose type is not part of the protocol set.
type Unknown struct {
	Type string
	Raw  json.RawMessage
}

func (Auth) Kind() string        { return TypeAuth }
func (IsSaveLock) Kind() string  { return TypeIsSaveLock }
func (SaveChanges) Kind() string { return TypeSaveChanges }
func (GetLock) Kind() string     { return TypeGetLock }
func (m Unknown) Kind() string   { return m.Type }

func (Auth) clientMessage()        {}
func (IsSaveLock) clientMessage()  {}
func (SaveChanges) clientMessage() {}
func (GetLock) clientMessage()     {}
func (Unknown) clientMessage()     {}

// ParseClient decodes a JSON client payload.
func ParseClient(data []byte) (ClientMessage, error) {
	var envelope struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if envelope.Type == nil {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	kind := strings.TrimSpace(*envelope.Type)
	switch kind {
	case TypeAuth:
		var m Auth
		return decodeInto(data, &m)
	case TypeIsSaveLock:
		return IsSaveLock{}, nil
	case TypeSaveChanges:
		var m SaveChanges
		return decodeInto(data, &m)
	case TypeGetLock:
		var m GetLock
		return decodeInto(data, &m)
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return Unknown{Type: kind, Raw: raw}, nil
	}
}

// DecodeClient accepts the payload shapes a transport may deliver: an already
// typed message, raw JSON, or a generic decoded object.
func DecodeClient(payload any) (ClientMessage, error) {
	switch v := payload.(type) {
	case nil:
		return nil, fmt.Errorf("%w: empty payload", ErrMalformed)
	case ClientMessage:
		return v, nil
	case json.RawMessage:
		return ParseClient(v)
	case []byte:
		return ParseClient(v)
	case string:
		return ParseClient([]byte(v))
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return ParseClient(data)
	}
}

func decodeInto[T ClientMessage](data []byte, dst *T) (ClientMessage, error) {
	if err := json.Unmarshal(data, dst); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return *dst, nil
}
