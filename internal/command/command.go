// Package command dispatches "scope:operation" commands to registered handlers
package command

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"umlforge/local-app/internal/errs"
	"umlforge/local-app/internal/log"
	"umlforge/local-app/internal/metrics"
	"umlforge/local-app/internal/model"
)

// Handler executes one command. The result is rendered by the caller.
type Handler func(ctx context.Context, args []string) (interface{}, error)

// Unlimited marks a Spec without an upper argument bound
const Unlimited = -1

// Spec describes a command for validation and help
type Spec struct {
	ID        string
	MinArgs   int
	MaxArgs   int
	Syntax    string
	ShortDesc string
	LongDesc  string
	Arguments []string
	Examples  []string
}

// Scope returns the part of the id before the colon
func (s Spec) Scope() string {
	scope, _, _ := strings.Cut(s.ID, ":")
	return scope
}

// Operation returns the part of the id after the colon
func (s Spec) Operation() string {
	_, operation, _ := strings.Cut(s.ID, ":")
	return operation
}

type entry struct {
	spec    Spec
	handler Handler
}

// Manager keeps the command handlers by scope and operation
type Manager struct {
	mu       sync.RWMutex
	handlers map[string]map[string]entry
	logger   *log.Logger
	metrics  *metrics.Collector
}

func NewManager(logger *log.Logger, collector *metrics.Collector) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	if collector == nil {
		logger.Error(context.Background(), "Metrics collector not initialized", nil)
		return nil, fmt.Errorf("metrics collector not initialized")
	}
	return &Manager{
		handlers: make(map[string]map[string]entry),
		logger:   logger,
		metrics:  collector,
	}, nil
}

// Register adds a handler under spec.ID. Ids must be unique.
func (m *Manager) Register(spec Spec, handler Handler) error {
	if handler == nil {
		return errs.InvalidArgument("command %s has no handler", spec.ID)
	}
	cmd := model.ParseCommandID(spec.ID)
	if cmd.Scope == "" || cmd.Operation == "" {
		return errs.InvalidArgument("invalid command id %q", spec.ID)
	}
	if spec.MaxArgs != Unlimited && spec.MaxArgs < spec.MinArgs {
		return errs.InvalidArgument("command %s accepts at most %d of at least %d arguments", spec.ID, spec.MaxArgs, spec.MinArgs)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	ops, ok := m.handlers[cmd.Scope]
	if !ok {
		ops = make(map[string]entry)
		m.handlers[cmd.Scope] = ops
	}
	if _, exists := ops[cmd.Operation]; exists {
		return errs.InvalidArgument("command %s already registered", spec.ID)
	}
	ops[cmd.Operation] = entry{spec: spec, handler: handler}
	return nil
}

// Lookup returns the spec of a registered command
func (m *Manager) Lookup(id string) (Spec, bool) {
	e, ok := m.lookup(model.ParseCommandID(id))
	return e.spec, ok
}

func (m *Manager) lookup(cmd model.Command) (entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.handlers[cmd.Scope][cmd.Operation]
	return e, ok
}

// Commands returns all specs sorted by id
func (m *Manager) Commands() []Spec {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var specs []Spec
	for _, ops := range m.handlers {
		for _, e := range ops {
			specs = append(specs, e.spec)
		}
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].ID < specs[j].ID })
	return specs
}

// Validate checks that cmd names a registered command and carries an accepted number of arguments
func (m *Manager) Validate(cmd model.Command) error {
	if cmd.Scope == "" {
		return errs.InvalidArgument("command scope is required")
	}
	if cmd.Operation == "" {
		return errs.InvalidArgument("command operation is required")
	}
	e, ok := m.lookup(cmd)
	if !ok {
		return errs.InvalidArgument("unknown command: %s", cmd.ID())
	}
	return e.spec.checkArgs(len(cmd.Args))
}

func (s Spec) checkArgs(n int) error {
	if n >= s.MinArgs && (s.MaxArgs == Unlimited || n <= s.MaxArgs) {
		return nil
	}
	usage := s.ID
	if s.Syntax != "" {
		usage = s.Syntax
	}
	switch {
	case s.MaxArgs == 0:
		return errs.InvalidArgument("%s does not accept any arguments", s.ID)
	case s.MinArgs == s.MaxArgs:
		return errs.InvalidArgument("%s requires %d argument(s): %s", s.ID, s.MinArgs, usage)
	case s.MaxArgs == Unlimited:
		return errs.InvalidArgument("%s requires at least %d argument(s): %s", s.ID, s.MinArgs, usage)
	default:
		return errs.InvalidArgument("%s requires %d to %d arguments: %s", s.ID, s.MinArgs, s.MaxArgs, usage)
	}
}

// Execute validates cmd and runs its handler. Every attempt is written to the command log.
func (m *Manager) Execute(ctx context.Context, cmd model.Command) (interface{}, error) {
	id := cmd.ID()
	ctx = log.WithCommand(ctx, id)
	m.logger.Command(ctx, "Command received", log.Fields{
		"scope":     cmd.Scope,
		"operation": cmd.Operation,
		"args":      cmd.Args,
	})

	start := time.Now()
	if err := m.Validate(cmd); err != nil {
		m.logger.Warn(ctx, "Invalid command", log.Fields{"error": err})
		m.metrics.RecordCommand(id, err, time.Since(start))
		return nil, err
	}

	e, _ := m.lookup(cmd)
	result, err := m.invoke(ctx, id, e.handler, cmd.Args)
	took := time.Since(start)
	m.metrics.RecordCommand(id, err, took)

	if err != nil {
		m.logger.Error(ctx, "Command execution failed", log.Fields{"error": err, "duration": took.String()})
		return nil, err
	}
	m.logger.Debug(ctx, "Command executed successfully", log.Fields{"duration": took.String()})
	return result, nil
}

// invoke runs handler, turning a panic into an error so the command loop survives it
func (m *Manager) invoke(ctx context.Context, id string, handler Handler, args []string) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error(ctx, "Panic in command handler", log.Fields{"panic": r})
			result, err = nil, fmt.Errorf("command %s panicked: %v", id, r)
		}
	}()
	return handler(ctx, args)
}
