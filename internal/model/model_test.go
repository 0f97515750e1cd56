package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleTypingField(t *testing.T) {
	assert.Equal(t, "user_typing", RoleUser.TypingField())
	assert.Equal(t, "doctor_typing", RoleDoctor.TypingField())
}

func TestRoleOpposite(t *testing.T) {
	assert.Equal(t, RoleDoctor, RoleUser.Opposite())
	assert.Equal(t, RoleUser, RoleDoctor.Opposite())
}

func TestTypingStateFlagFor(t *testing.T) {
	s := TypingState{UserTyping: true}
	assert.True(t, s.FlagFor(RoleUser))
	assert.False(t, s.FlagFor(RoleDoctor))
}

func TestMessageSummary(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{name: "text message", msg: Message{Kind: KindText, Text: "see you at 3"}, want: "see you at 3"},
		{name: "voice message", msg: Message{Kind: KindVoice, AudioRef: "voice:abc"}, want: "Voice note"},
		{name: "voice ignores text", msg: Message{Kind: KindVoice, Text: "stray"}, want: "Voice note"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.msg.Summary())
		})
	}
}
