package protocol

// User identifies the single local editor user.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Participant describes a connected editor instance.
type Participant struct {
	ConnectionID       string `json:"connectionId"`
	Encrypted          bool   `json:"encrypted"`
	ID                 string `json:"id"`
	IDOriginal         string `json:"idOriginal"`
	IndexUser          int    `json:"indexUser"`
	IsCloseCoAuthoring bool   `json:"isCloseCoAuthoring"`
	IsLiveViewer       bool   `json:"isLiveViewer"`
	Username           string `json:"username"`
	View               bool   `json:"view"`
}

// NewParticipant returns the participant record for the local user bound to
// the given connection.
func NewParticipant(connectionID string, user User) Participant {
	return Participant{
		ConnectionID: connectionID,
		ID:           user.ID,
		IDOriginal:   user.ID,
		IndexUser:    1,
		Username:     user.Name,
	}
}

// Permissions are the capability grants sent with the auth acknowledgment.
type Permissions struct {
	Comment      bool `json:"comment"`
	Chat         bool `json:"chat"`
	Download     bool `json:"download"`
	Edit         bool `json:"edit"`
	FillForms    bool `json:"fillForms"`
	ModifyFilter bool `json:"modifyFilter"`
	Protect      bool `json:"protect"`
	Print        bool `json:"print"`
	Review       bool `json:"review"`
	Copy         bool `json:"copy"`
}

// DefaultPermissions grants everything a single local editor needs.
func DefaultPermissions() Permissions {
	return Permissions{
		Comment:      true,
		Chat:         true,
		Download:     true,
		Edit:         true,
		ModifyFilter: true,
		Protect:      true,
		Print:        true,
		Copy:         true,
	}
}

// Lock is one block lock entry.
type Lock struct {
	Time  int64  `json:"time"`
	User  string `json:"user"`
	Block string `json:"block"`
}

// LicenseInfo is the payload of the license message.
type LicenseInfo struct {
	Type               int    `json:"type"`
	BuildNumber        int    `json:"buildNumber"`
	BuildVersion       string `json:"buildVersion"`
	Light              bool   `json:"light"`
	Mode               int    `json:"mode"`
	Rights             int    `json:"rights"`
	ProtectionSupport  bool   `json:"protectionSupport"`
	IsAnonymousSupport bool   `json:"isAnonymousSupport"`
	LiveViewerSupport  bool   `json:"liveViewerSupport"`
	Branding           bool   `json:"branding"`
	Customization      bool   `json:"customization"`
	AdvancedAPI        bool   `json:"advancedApi"`
}

// DefaultLicense returns the license the editor is told it runs under.
func DefaultLicense(buildVersion string) LicenseInfo {
	return LicenseInfo{
		Type:               LicenseType,
		BuildNumber:        LicenseBuildNumber,
		BuildVersion:       buildVersion,
		Rights:             1,
		ProtectionSupport:  true,
		IsAnonymousSupport: true,
		LiveViewerSupport:  true,
		Customization:      true,
	}
}
