package model

import "time"

// Message kinds. Exactly one of Text (for KindText) or AudioRef (for
// KindVoice) carries the payload.
const (
	KindText  = "text"
	KindVoice = "voice"
)

// Message represents a consultation message document in MongoDB.
// Messages are append-only and immutable once created; there is no
// edit or delete path. Ordering key is SentAt, assigned by the store
// at append time, not by the client.
type Message struct {
	ID         string    `json:"id" bson:"_id"`
	SessionKey string    `json:"sessionKey" bson:"parent_id"`
	SenderID   string    `json:"senderId" bson:"sender_id"`
	Kind       string    `json:"kind" bson:"kind"`
	Text       string    `json:"text" bson:"text"`
	AudioRef   string    `json:"audioRef,omitempty" bson:"audio_ref"`
	SentAt     time.Time `json:"sentAt" bson:"sent_at"`
}

// Summary returns the preview text written onto the session record.
func (m Message) Summary() string {
	if m.Kind == KindVoice {
		return "Voice note"
	}
	return m.Text
}
