package commandstructure

import (
	"fmt"
	"sort"
	"sync"
)

// Command is one step of the fingerprint enhancement pipeline. Steps exchange PNG encoded
// images so that every step can be run, tested and cached in isolation.
type Command interface {
	Name() string
	Execute(imageData []byte) ([]byte, error)
}

// CommandFactory creates a command from configuration parameters
type CommandFactory func(params map[string]any) (Command, error)

// CommandConfig is a command name plus its raw parameters as read from YAML
type CommandConfig struct {
	Name   string
	Params map[string]any
}

// CommandRegistry maps command names to factories
type CommandRegistry struct {
	mu        sync.RWMutex
	factories map[string]CommandFactory
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		factories: make(map[string]CommandFactory),
	}
}

// Register adds a command factory to the registry
func (r *CommandRegistry) Register(name string, factory CommandFactory) error {
	if name == "" {
		return fmt.Errorf("command name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("command factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("command %s is already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Create instantiates a command by name with the given parameters
func (r *CommandRegistry) Create(name string, params map[string]any) (Command, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("unknown command: %s", name)
	}

	if params == nil {
		params = map[string]any{}
	}
	command, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create command %s: %w", name, err)
	}

	return command, nil
}

// CreateAll instantiates every configured command in order, failing on the first invalid one
func (r *CommandRegistry) CreateAll(configs []CommandConfig) ([]Command, error) {
	commands := make([]Command, 0, len(configs))
	for i, config := range configs {
		command, err := r.Create(config.Name, config.Params)
		if err != nil {
			return nil, fmt.Errorf("failed to create command at index %d (%s): %w", i, config.Name, err)
		}
		commands = append(commands, command)
	}
	return commands, nil
}

func (r *CommandRegistry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[name]
	return exists
}

// GetRegisteredNames returns all registered command names in sorted order
func (r *CommandRegistry) GetRegisteredNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the built-in pipeline commands, registered from their init functions
var DefaultRegistry = NewCommandRegistry()
