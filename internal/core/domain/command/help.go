package command

import (
	"context"
	"fluxfill/internal/core/domain"
	"fluxfill/internal/core/port"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const usage = `Usage: /inpaint <prompt> [mask=URL] [image=URL] [steps=N] [guidance=N] [outpaint=MODE] [format=png|jpg|webp] [safety=N] [upsample=true|false]
Send or reply to a photo, or pass image=URL. Outpaint modes: none, zoom_out_1.5x, zoom_out_2x, make_square, left_outpaint, right_outpaint, top_outpaint, bottom_outpaint.`

// Help lists the registered commands.
type Help struct {
	registry port.CommandRegistry
	replier  port.Replier
	command  string
}

func NewHelp(registry port.CommandRegistry, replier port.Replier, command string) *Help {
	return &Help{registry: registry, replier: replier, command: command}
}

func (h *Help) GetCommand() string {
	return h.command
}

func (h *Help) Respond(ctx context.Context, timeout time.Duration, message *domain.Message) error {
	log.Info().Int64("chatId", message.ChatID).Str("command", h.GetCommand()).Msg("handling request")

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text := "Commands: " + strings.Join(h.registry.ListCommands(), ", ") + "\n\n" + usage

	return h.replier.Reply(message).EmitText(ctx, text)
}
