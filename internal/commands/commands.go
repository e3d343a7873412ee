// Package commands implements a process-wide registry of named commands
// submitted at startup; each command receives (proxy, raw_cmd, args,
// sender). Built as an explicit slice once at startup, the same idiom
// internal/core uses for the relay-pass chain.
package commands

import "github.com/regenerativep/splinter-proxy/internal/core"

// Sender identifies who issued a command.
type Sender struct {
	Name       string
	IsConsole  bool
}

func ConsoleSender() Sender { return Sender{Name: "console", IsConsole: true} }

// Command is one named, registered command.
type Command struct {
	Name   string
	Action func(proxy *core.Proxy, rawCmd string, args []string, sender Sender) error
}

// Registry is the frozen, process-wide set of commands, keyed by name.
type Registry struct {
	commands map[string]Command
}

// NewRegistry builds the registry from an explicit list, collected the
// same way defaultPasses() builds the relay-pass chain: visible
// construction, not package-level init() side effects.
func NewRegistry(commands ...Command) *Registry {
	r := &Registry{commands: make(map[string]Command, len(commands))}
	for _, c := range commands {
		r.commands[c.Name] = c
	}
	return r
}

// Default returns the registry this module ships with.
func Default() *Registry {
	return NewRegistry(
		KickCommand,
	)
}

func (r *Registry) Lookup(name string) (Command, bool) {
	c, ok := r.commands[name]
	return c, ok
}

// Dispatch looks up rawCmd as a command name in the registry and runs
// that command with args.
func (r *Registry) Dispatch(proxy *core.Proxy, rawCmd string, args []string, sender Sender) error {
	c, ok := r.Lookup(rawCmd)
	if !ok {
		return &UnknownCommandError{Name: rawCmd}
	}
	return c.Action(proxy, rawCmd, args, sender)
}

// UnknownCommandError reports a command name not present in the registry.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return "commands: unknown command " + e.Name
}
