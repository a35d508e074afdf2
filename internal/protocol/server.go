package protocol

import "encoding/json"

// ServerMessage is a message pushed by the backend to the editor.
type ServerMessage interface {
	Type() string
	serverMessage()
}

// OpenPacket is the engine.io handshake sent immediately on connect. It has
// no type discriminator.
type OpenPacket struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload"`
}

// License announces the editor license.
type License struct {
	License LicenseInfo `json:"license"`
}

// AuthChanges precedes the auth acknowledgment.
type AuthChanges struct {
	Changes []json.RawMessage `json:"changes"`
}

// AuthAck acknowledges the auth request.
type AuthAck struct {
	Result       int           `json:"result"`
	SessionID    string        `json:"sessionId"`
	Participants []Participant `json:"participants"`
	Locks        []Lock        `json:"locks"`
	IndexUser    int           `json:"indexUser"`
	BuildVersion string        `json:"buildVersion"`
	BuildNumber  int           `json:"buildNumber"`
	LicenseType  int           `json:"licenseType"`
	EditorType   int           `json:"editorType"`
	Mode         string        `json:"mode"`
	Permissions  Permissions   `json:"permissions"`
}

// DocumentStatus is the body of a documentOpen message.
type DocumentStatus struct {
	Type     string `json:"type"`
	Status   string `json:"status"`
	Data     any    `json:"data"`
	FileType string `json:"filetype,omitempty"`
}

// DocumentOpen publishes asset URLs after a load, or confirms a save.
type DocumentOpen struct {
	Data DocumentStatus `json:"data"`
}

// SaveLock answers isSaveLock.
type SaveLock struct {
	SaveLock bool `json:"saveLock"`
}

// UnSaveLock answers saveChanges.
type UnSaveLock struct {
	Index            int   `json:"index"`
	SyncChangesIndex int   `json:"syncChangesIndex"`
	Time             int64 `json:"time"`
}

// LockGrant answers getLock.
type LockGrant struct {
	Locks map[string]Lock `json:"locks"`
}

// LockRelease immediately follows a grant.
type LockRelease struct {
	Locks map[string]Lock `json:"locks"`
}

func (OpenPacket) Type() string   { return "" }
func (License) Type() string      { return TypeLicense }
func (AuthChanges) Type() string  { return TypeAuthChanges }
func (AuthAck) Type() string      { return TypeAuth }
func (DocumentOpen) Type() string { return TypeDocOpen }
func (SaveLock) Type() string     { return TypeSaveLock }
func (UnSaveLock) Type() string   { return TypeUnSaveLock }
func (LockGrant) Type() string    { return TypeGetLock }
func (LockRelease) Type() string  { return TypeReleaseLock }

func (OpenPacket) serverMessage()   {}
func (License) serverMessage()      {}
func (AuthChanges) serverMessage()  {}
func (AuthAck) serverMessage()      {}
func (DocumentOpen) serverMessage() {}
func (SaveLock) serverMessage()     {}
func (UnSaveLock) serverMessage()   {}
func (LockGrant) serverMessage()    {}
func (LockRelease) serverMessage()  {}

func (m License) MarshalJSON() ([]byte, error) {
	type body License
	return json.Marshal(struct {
		Type string `json:"type"`
		body
	}{m.Type(), body(m)})
}

func (m AuthChanges) MarshalJSON() ([]byte, error) {
	type body AuthChanges
	if m.Changes == nil {
		m.Changes = []json.RawMessage{}
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		body
	}{m.Type(), body(m)})
}

func (m AuthAck) MarshalJSON() ([]byte, error) {
	type body AuthAck
	if m.Locks == nil {
		m.Locks = []Lock{}
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		body
	}{m.Type(), body(m)})
}

func (m DocumentOpen) MarshalJSON() ([]byte, error) {
	type body DocumentOpen
	return json.Marshal(struct {
		Type string `json:"type"`
		body
	}{m.Type(), body(m)})
}

func (m SaveLock) MarshalJSON() ([]byte, error) {
	type body SaveLock
	return json.Marshal(struct {
		Type string `json:"type"`
		body
	}{m.Type(), body(m)})
}

func (m UnSaveLock) MarshalJSON() ([]byte, error) {
	type body UnSaveLock
	return json.Marshal(struct {
		Type string `json:"type"`
		body
	}{m.Type(), body(m)})
}

func (m LockGrant) MarshalJSON() ([]byte, error) {
	type body LockGrant
	return json.Marshal(struct {
		Type string `json:"type"`
		body
	}{m.Type(), body(m)})
}

func (m LockRelease) MarshalJSON() ([]byte, error) {
	type body LockRelease
	return json.Marshal(struct {
		Type string `json:"type"`
		body
	}{m.Type(), body(m)})
}
