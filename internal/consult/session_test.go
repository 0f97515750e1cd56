package consult

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionKeyDeterministic(t *testing.T) {
	assert.Equal(t, SessionKey("u1", "d9"), SessionKey("u1", "d9"))
	assert.Equal(t, "u1_d9", SessionKey("u1", "d9"))
}

func TestSessionKeyOrderSensitive(t *testing.T) {
	// user and doctor occupy fixed positions
	assert.NotEqual(t, SessionKey("u1", "d9"), SessionKey("d9", "u1"))
}

func TestSessionKeyDistinctPairsDistinctKeys(t *testing.T) {
	tests := []struct {
		name             string
		userA, doctorA   string
		userB, doctorB   string
	}{
		{name: "different doctor", userA: "u1", doctorA: "d1", userB: "u1", doctorB: "d2"},
		{name: "different user", userA: "u1", doctorA: "d1", userB: "u2", doctorB: "d1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, SessionKey(tt.userA, tt.doctorA), SessionKey(tt.userB, tt.doctorB))
		})
	}
}

func TestStorePaths(t *testing.T) {
	key := SessionKey("u1", "d9")
	assert.Equal(t, "chats/u1_d9", sessionPath(key))
	assert.Equal(t, "chats/u1_d9/messages", messagesPath(key))
	assert.Equal(t, "chats/u1_d9/meta/typing", typingPath(key))
}
