package command

import (
	"context"
	"errors"
	"fluxfill/internal/core/domain"
	"fluxfill/internal/core/port"
	"fluxfill/internal/core/service"
	"time"

	"github.com/rs/zerolog/log"
)

// Verify checks the configured Replicate token.
type Verify struct {
	tool     port.Tool
	replier  port.Replier
	auth     service.Authorizer
	apiToken string
	command  string
}

func NewVerify(tool port.Tool, replier port.Replier, auth service.Authorizer, apiToken string,
	command string) *Verify {
	return &Verify{tool: tool, replier: replier, auth: auth, apiToken: apiToken, command: command}
}

func (v *Verify) GetCommand() string {
	return v.command
}

func (v *Verify) Respond(ctx context.Context, timeout time.Duration, message *domain.Message) error {
	l := log.With().
		Int("messageId", message.ID).
		Int64("chatId", message.ChatID).
		Str("command", v.GetCommand()).
		Logger()

	l.Info().Msg("handling request")

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	emitter, ok := openReply(ctx, v.auth, v.replier, message, l)
	if !ok {
		return nil
	}

	err := v.tool.ValidateCredentials(ctx, v.apiToken)

	var text string
	switch {
	case err == nil:
		text = "API token is valid."
	case errors.Is(err, domain.ErrMissingCredential):
		text = "API token is required."
	case errors.Is(err, domain.ErrInvalidCredential):
		text = "API token is invalid."
	default:
		text = "Could not verify the API token: " + err.Error()
	}

	l.Debug().AnErr("validation", err).Msg("checked api token")

	return emitter.EmitText(ctx, text)
}
