package logging

// Standardized structured logging keys.
const (
	FieldComponent   = "component"
	FieldDocumentKey = "document_key"
	FieldSessionID   = "session_id"
	FieldSocketID    = "socket_id"
	FieldRequestID   = "request_id"
	FieldEventType   = "event_type"
	FieldErrorHint   = "error_hint"
	FieldImpact      = "impact"
)
