package command

import (
	"context"
	"fluxfill/internal/core/domain"
	"fluxfill/internal/core/port"
	"fluxfill/internal/core/service"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Inpaint runs FLUX Fill Pro on the image attached to, or referenced by, a chat message.
type Inpaint struct {
	tool     port.Tool
	replier  port.Replier
	auth     service.Authorizer
	apiToken string
	command  string
}

func NewInpaint(tool port.Tool, replier port.Replier, auth service.Authorizer, apiToken string,
	command string) *Inpaint {
	return &Inpaint{
		tool:     tool,
		replier:  replier,
		auth:     auth,
		apiToken: apiToken,
		command:  command,
	}
}

func (i *Inpaint) GetCommand() string {
	return i.command
}

func (i *Inpaint) Respond(ctx context.Context, timeout time.Duration, message *domain.Message) error {
	l := log.With().
		Int("messageId", message.ID).
		Int64("chatId", message.ChatID).
		Stringer("image", domain.ImageRef(message.ImageURL)).
		Str("command", i.GetCommand()).
		Logger()

	l.Info().Msg("handling request")

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	emitter, ok := openReply(ctx, i.auth, i.replier, message, l)
	if !ok {
		return nil
	}

	params, err := ParseInpaintArgs(ParseCommandArgs(message.Text))
	if err != nil {
		notifyErr := emitter.EmitText(ctx, fmt.Sprintf("Invalid parameters: %s", err))
		if notifyErr != nil {
			l.Err(notifyErr).Msg(domain.ErrSendingReplyFailed.Error())
		}
		return err
	}

	if params.Image == "" {
		params.Image = domain.ImageRef(message.ImageURL)
	}

	go i.replier.SendChatAction(ctx, message.ChatID)

	err = i.tool.Invoke(ctx, i.apiToken, params, emitter)
	if err != nil {
		return fmt.Errorf("error running inpaint: %w", err)
	}

	return nil
}
