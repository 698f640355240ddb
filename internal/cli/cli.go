// Package cli provides the interactive command line and the script runner.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"umlforge/local-app/internal/app"
	"umlforge/local-app/internal/command"
	"umlforge/local-app/internal/log"
	"umlforge/local-app/internal/model"
	"umlforge/local-app/internal/ui"
)

// Backend executes commands for the CLI
type Backend interface {
	Execute(ctx context.Context, cmd model.Command) (interface{}, error)
	Status(ctx context.Context) (app.Status, error)
	CommandSpecs() []command.Spec
	Quit() <-chan struct{}
}

// LineReader is satisfied by *readline.Instance
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	Close() error
}

// CLI represents the command-line interface
type CLI struct {
	backend     Backend
	reader      LineReader
	ui          *ui.UI
	logger      *log.Logger
	interactive bool
	stopCh      chan struct{}
	stopOnce    sync.Once
	failed      int
}

// NewCLI creates a CLI. A non interactive CLI echoes each line and reports failed commands.
func NewCLI(backend Backend, reader LineReader, out io.Writer, logger *log.Logger, interactive bool) (*CLI, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend not initialized")
	}
	if reader == nil {
		return nil, fmt.Errorf("reader not initialized")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	return &CLI{
		backend:     backend,
		reader:      reader,
		ui:          ui.NewUI(out),
		logger:      logger,
		interactive: interactive,
		stopCh:      make(chan struct{}),
	}, nil
}

// NewReadline opens a line editor with persistent history and command completion
func NewReadline(historyFile string, specs []command.Spec) (*readline.Instance, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     historyFile,
		AutoComplete:    completer(specs),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize readline: %w", err)
	}
	return rl, nil
}

func completer(specs []command.Spec) *readline.PrefixCompleter {
	var scopes []readline.PrefixCompleterInterface
	var ops []readline.PrefixCompleterInterface
	current := ""
	flush := func() {
		if current != "" {
			scopes = append(scopes, readline.PcItem(current, ops...))
		}
	}
	for _, spec := range specs {
		if spec.Scope() != current {
			flush()
			current, ops = spec.Scope(), nil
		}
		ops = append(ops, readline.PcItem(spec.Operation()))
	}
	flush()
	scopes = append(scopes, readline.PcItem("help"))
	return readline.NewPrefixCompleter(scopes...)
}

// scriptReader feeds lines from a file or pipe
type scriptReader struct {
	scanner *bufio.Scanner
}

// NewScriptReader reads commands line by line from r
func NewScriptReader(r io.Reader) LineReader {
	return &scriptReader{scanner: bufio.NewScanner(r)}
}

func (s *scriptReader) Readline() (string, error) {
	if s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *scriptReader) SetPrompt(string) {}

func (s *scriptReader) Close() error { return nil }

// Run reads and executes commands until end of input, Stop or application quit
func (c *CLI) Run(ctx context.Context) error {
	for {
		if c.interactive {
			c.updatePrompt(ctx)
		}
		line, err := c.reader.Readline()
		if c.stopped() {
			return c.result()
		}
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			c.ui.Info("Use 'application quit' to exit the program.")
			continue
		case errors.Is(err, io.EOF):
			return c.result()
		case err != nil:
			c.logger.Error(ctx, "Failed to read input", log.Fields{"error": err})
			return fmt.Errorf("failed to read input: %w", err)
		}

		c.handleLine(ctx, line)

		select {
		case <-c.backend.Quit():
			return c.result()
		default:
		}
	}
}

// Stop ends Run and unblocks a pending read
func (c *CLI) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if err := c.reader.Close(); err != nil {
			c.logger.Warn(context.Background(), "Failed to close reader", log.Fields{"error": err})
		}
	})
}

func (c *CLI) stopped() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

func (c *CLI) result() error {
	if !c.interactive && c.failed > 0 {
		return fmt.Errorf("%d command(s) failed", c.failed)
	}
	return nil
}

func (c *CLI) updatePrompt(ctx context.Context) {
	status, err := c.backend.Status(ctx)
	if err != nil {
		c.reader.SetPrompt(c.ui.Prompt("", false))
		return
	}
	c.reader.SetPrompt(c.ui.Prompt(status.Project, status.Modified))
}

func (c *CLI) handleLine(ctx context.Context, line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	if !c.interactive {
		c.ui.Info("> " + line)
	}

	args := ParseArgs(line)
	if strings.ToLower(args[0]) == "help" {
		if err := c.printHelp(args[1:]); err != nil {
			c.ui.Error(err.Error())
		}
		return
	}

	cmd, err := parseCommand(args)
	if err != nil {
		c.failed++
		c.ui.Error(err.Error())
		return
	}
	result, err := c.backend.Execute(ctx, cmd)
	if err != nil {
		c.failed++
		c.ui.Error(err.Error())
		return
	}
	c.ui.Result(result)
}

// ParseArgs splits input on blanks. Double quotes group words and are removed.
func ParseArgs(input string) []string {
	var args []string
	var currentArg strings.Builder
	inQuotes := false
	quoted := false

	for _, char := range input {
		switch char {
		case '"':
			inQuotes = !inQuotes
			quoted = true
		case ' ', '\t':
			if inQuotes {
				currentArg.WriteRune(char)
			} else if currentArg.Len() > 0 || quoted {
				args = append(args, currentArg.String())
				currentArg.Reset()
				quoted = false
			}
		default:
			currentArg.WriteRune(char)
		}
	}

	if currentArg.Len() > 0 || quoted {
		args = append(args, currentArg.String())
	}

	return args
}

// parseCommand maps "scope operation args..." to a Command. quit and exit are shortcuts
// for application quit.
func parseCommand(args []string) (model.Command, error) {
	if len(args) == 0 {
		return model.Command{}, fmt.Errorf("empty command")
	}
	scope := strings.ToLower(args[0])
	if scope == "quit" || scope == "exit" {
		return model.Command{Scope: "application", Operation: "quit", Args: args[1:]}, nil
	}
	if len(args) < 2 {
		return model.Command{}, fmt.Errorf("missing operation for %q, see 'help %s'", scope, scope)
	}
	return model.Command{
		Scope:     scope,
		Operation: strings.ToLower(args[1]),
		Args:      args[2:],
	}, nil
}
