package command

import (
	"errors"
	"fluxfill/internal/core/port"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrRegistryEmpty   = errors.New("no commands registered")
	ErrCommandNotFound = errors.New("command not found")
)

// Registry maps chat commands such as "/inpaint" to their handlers. The zero value is ready to use and safe for
// concurrent lookups while the bot is running.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]port.Command
}

func NewRegistry(commands ...port.Command) *Registry {
	r := &Registry{}
	for _, c := range commands {
		r.Register(c)
	}
	return r
}

// Register adds a handler under its command name. Registering the same name twice replaces the earlier handler.
func (r *Registry) Register(handler port.Command) {
	name := strings.ToLower(handler.GetCommand())

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.commands == nil {
		r.commands = make(map[string]port.Command)
	}

	if _, exists := r.commands[name]; exists {
		log.Warn().Str("command", name).Msg("replacing registered command")
	}

	log.Info().Str("command", name).Msg("registered command")
	r.commands[name] = handler
}

func (r *Registry) Get(command string) (port.Command, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.commands) == 0 {
		return nil, ErrRegistryEmpty
	}

	handler, ok := r.commands[command]
	if !ok {
		return nil, ErrCommandNotFound
	}

	return handler, nil
}

// ListCommands returns the registered command names in alphabetical order.
func (r *Registry) ListCommands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.commands))
}

// ParseCommandArgs drops the command word and returns the rest of the message.
func ParseCommandArgs(text string) string {
	_, args, _ := strings.Cut(strings.TrimSpace(text), " ")
	return strings.TrimSpace(args)
}

// ParseCommand returns the lower-cased command of a message, dropping a trailing @botname mention.
func ParseCommand(text string) string {
	word, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	name, _, _ := strings.Cut(word, "@")
	return strings.ToLower(name)
}
