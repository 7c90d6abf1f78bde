package sender

import (
	"bytes"
	"context"
	"fluxfill/internal/core/domain"
	"fluxfill/internal/core/port"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
)

const TelegramMessageLimit = 4096

const ChatActionRepeatSeconds = 5

// TelegramBot is the subset of *bot.Bot used for replies.
type TelegramBot interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}

type Telegram struct {
	bot TelegramBot
}

func NewTelegram(bot TelegramBot) *Telegram {
	return &Telegram{bot: bot}
}

// SendMessageReply replies to a message, splitting text longer than the Telegram limit into several messages.
func (s *Telegram) SendMessageReply(ctx context.Context, message *domain.Message, text string) (int, error) {
	var lastID int
	for _, chunk := range chunk(text, TelegramMessageLimit) {
		sent, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: message.ChatID,
			Text:   chunk,
			ReplyParameters: &models.ReplyParameters{
				MessageID: message.ID,
				ChatID:    message.ChatID,
			},
		})
		if err != nil {
			log.Error().Err(err).Int64("chatId", message.ChatID).Msg("failed to send message reply")
			return lastID, err
		}
		lastID = sent.ID
	}

	return lastID, nil
}

// SendDocumentReply uploads a file uncompressed, so generated PNGs arrive losslessly.
func (s *Telegram) SendDocumentReply(ctx context.Context, message *domain.Message, file []byte,
	filename string) error {
	params := &bot.SendDocumentParams{
		ChatID:   message.ChatID,
		Document: &models.InputFileUpload{Filename: filename, Data: bytes.NewReader(file)},
		ReplyParameters: &models.ReplyParameters{
			MessageID: message.ID,
			ChatID:    message.ChatID,
		},
	}

	_, err := s.bot.SendDocument(ctx, params)
	if err != nil {
		log.Error().Err(err).Msg("failed to send document response")
		return err
	}

	return nil
}

// SendChatAction shows the upload indicator in a chat until the context is done.
func (s *Telegram) SendChatAction(ctx context.Context, chatID int64) {
	log.Debug().Int64("chatID", chatID).Msg("starting action routine")
	for {
		select {
		case <-ctx.Done():
			log.Debug().Int64("chatID", chatID).Msg("done, stopping action routine")
			return
		default:
		}

		_, err := s.bot.SendChatAction(ctx, &bot.SendChatActionParams{
			ChatID: chatID,
			Action: models.ChatActionUploadDocument,
		})
		if err != nil {
			log.Err(err).Msg("error sending chat action")
			return
		}

		select {
		case <-ctx.Done():
		case <-time.After(ChatActionRepeatSeconds * time.Second):
		}
	}
}

// Reply binds the sender to a message, so tool output is delivered as replies to it.
func (s *Telegram) Reply(message *domain.Message) port.Emitter {
	return &telegramReply{sender: s, message: message}
}

type telegramReply struct {
	sender  *Telegram
	message *domain.Message
}

func (r *telegramReply) EmitText(ctx context.Context, text string) error {
	_, err := r.sender.SendMessageReply(ctx, r.message, text)
	return err
}

func (r *telegramReply) EmitBlob(ctx context.Context, blob []byte, mimeType string) error {
	return r.sender.SendDocumentReply(ctx, r.message, blob, filename(r.message.ID, mimeType))
}

func filename(id int, mimeType string) string {
	ext := strings.TrimPrefix(mimeType, "image/")
	if ext == "jpeg" {
		ext = "jpg"
	}
	return fmt.Sprintf("fluxfill-%d.%s", id, ext)
}

func chunk(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(runes) > 0 {
		n := min(limit, len(runes))
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	return chunks
}
