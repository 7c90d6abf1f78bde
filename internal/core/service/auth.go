package service

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Authorizer decides whether a chat may spend credits on the paid model.
type Authorizer interface {
	Authorize(chatID int64) error
}

// AccessError is returned for chats missing from the allowlist. Its Notice is meant for the rejected user.
type AccessError struct {
	ChatID int64
	Admin  string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("chat %d is not allowed", e.ChatID)
}

func (e *AccessError) Notice() string {
	if e.Admin == "" {
		return fmt.Sprintf("You are not authorized to use this bot. Your chat ID is %d.", e.ChatID)
	}

	return fmt.Sprintf("You are not authorized to use this bot. Please contact @%s with this ID to get access: %d",
		e.Admin, e.ChatID)
}

// ChatAuthorizer allows a fixed set of chat IDs.
type ChatAuthorizer struct {
	allowed map[int64]struct{}
	admin   string
}

func NewChatAuthorizer(admin string, chatIDs ...int64) *ChatAuthorizer {
	allowed := make(map[int64]struct{}, len(chatIDs))
	for _, id := range chatIDs {
		allowed[id] = struct{}{}
	}

	return &ChatAuthorizer{allowed: allowed, admin: admin}
}

// NewAuthorizer builds a ChatAuthorizer from telegram.allowed_chat_ids and telegram.admin_username.
func NewAuthorizer() (*ChatAuthorizer, error) {
	var ids []int64

	err := viper.UnmarshalKey("telegram.allowed_chat_ids", &ids)
	if err != nil {
		return nil, errors.New("failed to load allowed chat IDs")
	}

	return NewChatAuthorizer(viper.GetString("telegram.admin_username"), ids...), nil
}

func (a *ChatAuthorizer) Authorize(chatID int64) error {
	if _, ok := a.allowed[chatID]; ok {
		return nil
	}

	return &AccessError{ChatID: chatID, Admin: a.admin}
}
