// Package consult implements the real-time consultation messaging core:
// session identity, the live message view, typing presence, voice
// recording and the symptom rule engine, orchestrated by a per-client
// Controller.
package consult

// SessionKey derives the stable conversation identity for a
// (user, doctor) pair. Pure and order-sensitive: user and doctor occupy
// fixed positions, so the same pair always lands on the same session no
// matter how often the conversation is reopened. Undefined for empty
// ids; callers resolve identities first.
func SessionKey(userID, doctorID string) string {
	return userID + "_" + doctorID
}

const doctorsPath = "doctors"

func sessionPath(key string) string  { return "chats/" + key }
func messagesPath(key string) string { return "chats/" + key + "/messages" }
func typingPath(key string) string   { return "chats/" + key + "/meta/typing" }
