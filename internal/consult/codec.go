package consult

import (
	"time"

	"MindEase/internal/model"
	"MindEase/internal/store"
)

// Conversions between store documents and domain records. Field names
// match what the write side of this package produces; unknown fields
// are ignored so externally written extras never break decoding.

func messageFromDocument(sessionKey string, d store.Document) model.Message {
	return model.Message{
		ID:         d.ID,
		SessionKey: sessionKey,
		SenderID:   stringField(d.Fields, "sender_id"),
		Kind:       stringField(d.Fields, "kind"),
		Text:       stringField(d.Fields, "text"),
		AudioRef:   stringField(d.Fields, "audio_ref"),
		SentAt:     timeField(d.Fields, "sent_at"),
	}
}

func typingFromSnapshot(snap store.Snapshot) model.TypingState {
	if len(snap.Docs) == 0 {
		return model.TypingState{}
	}
	fields := snap.Docs[0].Fields
	return model.TypingState{
		UserTyping:   boolField(fields, model.RoleUser.TypingField()),
		DoctorTyping: boolField(fields, model.RoleDoctor.TypingField()),
	}
}

func doctorFromDocument(d store.Document) model.Doctor {
	return model.Doctor{
		ID:        d.ID,
		Name:      stringField(d.Fields, "name"),
		Specialty: stringField(d.Fields, "specialty"),
		Available: boolField(d.Fields, "available"),
		Photo:     stringField(d.Fields, "photo"),
	}
}

func stringField(fields map[string]any, key string) string {
	v, _ := fields[key].(string)
	return v
}

func boolField(fields map[string]any, key string) bool {
	v, _ := fields[key].(bool)
	return v
}

func timeField(fields map[string]any, key string) time.Time {
	v, _ := fields[key].(time.Time)
	return v
}
