package model

// Role identifies which side of a consultation a process represents.
type Role string

const (
	RoleUser   Role = "user"
	RoleDoctor Role = "doctor"
)

// TypingField returns the name of the presence flag this role owns
// inside the shared typing record. Each side only ever writes its own
// field, so concurrent merge-writes never conflict.
func (r Role) TypingField() string {
	if r == RoleDoctor {
		return "doctor_typing"
	}
	return "user_typing"
}

// Opposite returns the other side of the conversation.
func (r Role) Opposite() Role {
	if r == RoleDoctor {
		return RoleUser
	}
	return RoleDoctor
}

// TypingState is the shared per-session presence record. It is
// frequently overwritten and never historically retained; a true flag
// is only as fresh as its writer's last merge-write.
type TypingState struct {
	UserTyping   bool `json:"userTyping" bson:"user_typing"`
	DoctorTyping bool `json:"doctorTyping" bson:"doctor_typing"`
}

// FlagFor returns the flag owned by the given role.
func (t TypingState) FlagFor(r Role) bool {
	if r == RoleDoctor {
		return t.DoctorTyping
	}
	return t.UserTyping
}
