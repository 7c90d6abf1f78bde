package command

import (
	"errors"
	"fluxfill/internal/core/domain"
	"fluxfill/internal/core/service"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestOpenReply(t *testing.T) {
	tests := []struct {
		name      string
		auth      service.Authorizer
		wantOK    bool
		wantTexts []string
	}{
		{
			name:   "allowed chat gets a silent emitter",
			auth:   &MockAuth{allowed: true},
			wantOK: true,
		},
		{
			name:      "allowlist rejection tells the chat who to ask",
			auth:      service.NewChatAuthorizer("admin", 1, 2),
			wantTexts: []string{"You are not authorized to use this bot. Please contact @admin with this ID to get access: 7"},
		},
		{
			name:      "other rejections get the generic text",
			auth:      &MockAuth{err: errors.New("lookup failed")},
			wantTexts: []string{"You are not authorized to use this bot."},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			emitter := &MockEmitter{}
			replier := &MockReplier{emitter: emitter}
			message := &domain.Message{ID: 5, ChatID: 7}

			got, ok := openReply(t.Context(), tc.auth, replier, message, log.Logger)

			assert.Equal(t, tc.wantOK, ok)
			assert.Same(t, emitter, got)
			assert.Equal(t, []*domain.Message{message}, replier.replies)
			assert.Equal(t, tc.wantTexts, emitter.texts)
		})
	}
}
