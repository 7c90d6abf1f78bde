package handler

import (
	"context"
	"errors"
	"fluxfill/internal/core/domain"
	"fluxfill/internal/core/domain/command"
	"fluxfill/internal/core/port"
	"net/http"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
)

// FileLinker resolves Telegram file IDs into download URLs. *bot.Bot implements it.
type FileLinker interface {
	GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error)
	FileDownloadLink(f *models.File) string
}

type Command struct {
	commandRegistry port.CommandRegistry
	fetcher         port.ImageFetcher
	timeout         time.Duration
}

// NewCommand creates the update handler. Images attached to commands are downloaded with fetcher, so Telegram
// file links, which embed the bot token, never leave the process.
func NewCommand(commandRegistry port.CommandRegistry, fetcher port.ImageFetcher, timeout time.Duration) *Command {
	return &Command{commandRegistry: commandRegistry, fetcher: fetcher, timeout: timeout}
}

// Handle is registered as a go-telegram/bot handler for text messages and captions.
func (c *Command) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	var files FileLinker
	if b != nil {
		files = b
	}

	c.handle(ctx, files, update)
}

func (c *Command) handle(ctx context.Context, files FileLinker, update *models.Update) {
	if update.Message == nil {
		log.Debug().Msg("update without message")
		return
	}

	msg := update.Message
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	log.Debug().Str("message", text).Msg("received command")

	cmd := command.ParseCommand(text)
	commandHandler, err := c.commandRegistry.Get(cmd)
	if err != nil {
		log.Debug().Str("command", cmd).Msg("no handler for command")
		return
	}

	go func() {
		err := commandHandler.Respond(ctx, c.timeout, &domain.Message{
			ID:       msg.ID,
			ChatID:   msg.Chat.ID,
			Username: getUserNameFromMessage(msg.From),
			ImageURL: c.getOptionalImage(ctx, files, msg),
			Text:     text,
		})
		if err != nil {
			log.Err(err).Str("command", cmd).Msg("failed to respond to command")
		}
	}()
}

// getOptionalImage returns the image of the message or the message it replies to as a data URI. Documents are
// preferred over photos because Telegram recompresses photos.
func (c *Command) getOptionalImage(ctx context.Context, files FileLinker, msg *models.Message) string {
	if files == nil {
		return ""
	}

	fileID := imageFileID(msg)
	if fileID == "" && msg.ReplyToMessage != nil {
		fileID = imageFileID(msg.ReplyToMessage)
	}

	if fileID == "" {
		return ""
	}

	l := log.With().Str("fileId", fileID).Logger()

	f, err := files.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		l.Error().Err(err).Msg("error getting file from telegram api")
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.fetcher.Fetch(ctx, domain.ImageRef(files.FileDownloadLink(f)))
	if err != nil {
		// the error carries the download link, only its status is logged
		var retrievalErr *domain.RetrievalError
		if errors.As(err, &retrievalErr) {
			l.Error().Int("status", retrievalErr.StatusCode).Msg("error downloading file from telegram")
		} else {
			l.Error().Msg("error downloading file from telegram")
		}
		return ""
	}

	return string(domain.NewDataURI(http.DetectContentType(data), data))
}

func imageFileID(msg *models.Message) string {
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		return msg.Document.FileID
	}

	if len(msg.Photo) > 0 {
		return findLargestImage(msg.Photo)
	}

	return ""
}

// findLargestImage picks the full resolution variant, the mask has to be checked against the real size.
func findLargestImage(photos []models.PhotoSize) string {
	largest := photos[0]
	for _, photo := range photos[1:] {
		if photo.Width*photo.Height > largest.Width*largest.Height {
			largest = photo
		}
	}

	return largest.FileID
}

func getUserNameFromMessage(user *models.User) string {
	if user == nil {
		return ""
	}

	if user.Username == "" {
		return user.FirstName
	}

	return "@" + user.Username
}
