package model

// Doctor represents a doctor profile document in MongoDB.
// Doctors are owned by the profile system; this service only reads them
// (availability is toggled externally and observed live).
type Doctor struct {
	ID        string `json:"id" bson:"_id"`
	Name      string `json:"name" bson:"name"`
	Specialty string `json:"specialty" bson:"specialty"`
	Available bool   `json:"available" bson:"available"`
	Photo     string `json:"photo" bson:"photo"`
}

// Participant is the identity a client presents when connecting.
// Issued by the auth system; immutable for the lifetime of a session.
type Participant struct {
	ID     string `json:"id" bson:"user_id"`
	Name   string `json:"name" bson:"name"`
	Avatar string `json:"avatar" bson:"avatar"`
}
