package protocol

// Message type discriminators.
const (
	TypeAuth        = "auth"
	TypeAuthChanges = "authChanges"
	TypeLicense     = "license"
	TypeDocOpen     = "documentOpen"
	TypeIsSaveLock  = "isSaveLock"
	TypeSaveLock    = "saveLock"
	TypeSaveChanges = "saveChanges"
	TypeUnSaveLock  = "unSaveLock"
	TypeGetLock     = "getLock"
	TypeReleaseLock = "releaseLock"
)

// Asset naming.
const (
	PrimaryAsset = "Editor.bin"
	MediaPrefix  = "media/"
)

// FormatPDF is the converter's numeric destination code for PDF output. It is
// required when a ".pdf" destination name alone is ambiguous.
const FormatPDF = 513

// Build metadata reported to the editor.
const (
	DefaultBuildVersion = "9.3.0"
	DefaultBuildNumber  = 9
	LicenseBuildNumber  = 8
	LicenseType         = 3
	EditorType          = 2
)

// Engine.io handshake parameters.
const (
	PingIntervalMillis = 25000
	PingTimeoutMillis  = 20000
	MaxPayloadBytes    = 100000000
)

// SaveType is the savetype signal carried by chunked download-as requests.
type SaveType int

const (
	SavePartStart   SaveType = 0
	SavePart        SaveType = 1
	SaveComplete    SaveType = 2
	SaveCompleteAll SaveType = 3
)

// Terminal reports whether the signal completes a chunked sequence.
func (t SaveType) Terminal() bool {
	return t == SaveComplete || t == SaveCompleteAll
}

func (t SaveType) String() string {
	switch t {
	case SavePartStart:
		return "part-start"
	case SavePart:
		return "part"
	case SaveComplete:
		return "complete"
	case SaveCompleteAll:
		return "complete-all"
	default:
		return "unknown"
	}
}
