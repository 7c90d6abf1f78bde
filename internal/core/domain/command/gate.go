package command

import (
	"context"
	"errors"
	"fluxfill/internal/core/domain"
	"fluxfill/internal/core/port"
	"fluxfill/internal/core/service"

	"github.com/rs/zerolog"
)

const deniedText = "You are not authorized to use this bot."

// openReply returns the emitter answering message. Chats the authorizer rejects are told so on that emitter and
// get ok == false, every paid command goes through here before touching the tool.
func openReply(ctx context.Context, auth service.Authorizer, replier port.Replier, message *domain.Message,
	l zerolog.Logger) (emitter port.Emitter, ok bool) {
	emitter = replier.Reply(message)

	err := auth.Authorize(message.ChatID)
	if err == nil {
		return emitter, true
	}

	l.Debug().Err(err).Msg("not authorized")

	text := deniedText
	var accessErr *service.AccessError
	if errors.As(err, &accessErr) {
		text = accessErr.Notice()
	}

	if err := emitter.EmitText(ctx, text); err != nil {
		l.Err(err).Msg(domain.ErrSendingReplyFailed.Error())
	}

	return emitter, false
}
