package commands

import (
	"context"
)

// Command represents a bot command handler
type Command interface {
	// GetName returns the command name (without /)
	GetName() string

	// Handle executes the command
	Handle(ctx context.Context, chatID int64, args []string) error
}

// CommandRegistry manages bot commands
type CommandRegistry struct {
	commands map[string]Command
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[string]Command),
	}
}

// Register adds a command to the registry
func (r *CommandRegistry) Register(cmd Command) {
	r.commands[cmd.GetName()] = cmd
}

// Get retrieves a command by name
func (r *CommandRegistry) Get(name string) (Command, bool) {
	cmd, exists := r.commands[name]
	return cmd, exists
}

// Execute runs a command by name. Unknown commands are silently ignored.
func (r *CommandRegistry) Execute(ctx context.Context, name string, chatID int64, args []string) error {
	command, exists := r.Get(name)
	if !exists {
		return nil
	}
	return command.Handle(ctx, chatID, args)
}
