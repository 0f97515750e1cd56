package event

import "encoding/json"

// Client -> server events.
const (
	EventSelectDoctor    = "select_doctor"
	EventClientMessage   = "client_message"
	EventTyping          = "typing"
	EventRecordStart     = "record_start"
	EventRecordStop      = "record_stop"
	EventAnalyzeSymptoms = "analyze_symptoms"
)

// Server -> client events.
const (
	EventServerMessages      = "server_messages"
	EventServerTyping        = "server_typing"
	EventServerRecording     = "server_recording"
	EventServerSymptomReport = "server_symptom_report"
	EventServerNotification  = "server_notification"
	EventServerSession       = "server_session"
	EventServerError         = "server_error"
)

type WsEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type SelectDoctorPayload struct {
	DoctorID string `json:"doctorId"`
}

type MessagePayload struct {
	Text string `json:"text"`
}

type AnalyzePayload struct {
	Text string `json:"text"`
}

type TypingPayload struct {
	Typing bool `json:"typing"`
}

type RecordingPayload struct {
	Recording bool `json:"recording"`
}

type SessionPayload struct {
	SessionKey   string `json:"sessionKey"`
	DoctorID     string `json:"doctorId"`
	VideoCallURL string `json:"videoCallUrl"`
}

type NotificationPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ErrorPayload represents an error response sent to client via WebSocket
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
