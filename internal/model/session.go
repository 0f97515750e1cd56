package model

import "time"

// ConsultationSession represents a consultation document in MongoDB.
// Exactly one session exists per (user, doctor) pair; its key is derived,
// never generated, so reopening a conversation always lands on the same
// document. Sessions are upserted on every send and never deleted.
type ConsultationSession struct {
	Key           string    `json:"key" bson:"_id"`
	UserID        string    `json:"userId" bson:"user_id"`
	DoctorID      string    `json:"doctorId" bson:"doctor_id"`
	LastMessage   string    `json:"lastMessage" bson:"last_message"`
	LastTimestamp time.Time `json:"lastTimestamp" bson:"last_timestamp"`
}
