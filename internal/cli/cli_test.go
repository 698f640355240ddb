package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umlforge/local-app/internal/app"
	"umlforge/local-app/internal/command"
	"umlforge/local-app/internal/log"
	"umlforge/local-app/internal/model"
)

type fakeBackend struct {
	executed []model.Command
	results  map[string]interface{}
	errors   map[string]error
	status   app.Status
	quit     chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		results: map[string]interface{}{},
		errors:  map[string]error{},
		quit:    make(chan struct{}),
	}
}

func (f *fakeBackend) Execute(_ context.Context, cmd model.Command) (interface{}, error) {
	f.executed = append(f.executed, cmd)
	if cmd.ID() == "application:quit" {
		close(f.quit)
		return nil, nil
	}
	return f.results[cmd.ID()], f.errors[cmd.ID()]
}

func (f *fakeBackend) Status(context.Context) (app.Status, error) { return f.status, nil }

func (f *fakeBackend) CommandSpecs() []command.Spec {
	return []command.Spec{
		{ID: "edit:redo", Syntax: "edit redo", ShortDesc: "Redo", LongDesc: "Apply again."},
		{ID: "edit:undo", Syntax: "edit undo", ShortDesc: "Undo", LongDesc: "Revert the last change.", Examples: []string{"edit undo"}},
		{ID: "view:tree", Syntax: "view tree [element]", ShortDesc: "Show the tree", LongDesc: "Show a tree."},
	}
}

func (f *fakeBackend) Quit() <-chan struct{} { return f.quit }

func runScript(t *testing.T, backend Backend, script string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c, err := NewCLI(backend, NewScriptReader(strings.NewReader(script)), &out, log.NewNop(), false)
	require.NoError(t, err)
	err = c.Run(context.Background())
	return out.String(), err
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"edit undo", []string{"edit", "undo"}},
		{"  factory   create-model  Class ", []string{"factory", "create-model", "Class"}},
		{`engine set-property Model/Order name "Purchase Order"`, []string{"engine", "set-property", "Model/Order", "name", "Purchase Order"}},
		{`engine set-property Model/Order documentation ""`, []string{"engine", "set-property", "Model/Order", "documentation", ""}},
		{"edit\tselect\tA", []string{"edit", "select", "A"}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseArgs(tt.input)); diff != "" {
				t.Errorf("ParseArgs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseCommand(t *testing.T) {
	cmd, err := parseCommand([]string{"Edit", "UNDO"})
	require.NoError(t, err)
	assert.Equal(t, model.Command{Scope: "edit", Operation: "undo", Args: []string{}}, cmd)

	cmd, err = parseCommand([]string{"quit", "force"})
	require.NoError(t, err)
	assert.Equal(t, "application:quit", cmd.ID())
	assert.Equal(t, []string{"force"}, cmd.Args)

	_, err = parseCommand([]string{"edit"})
	assert.ErrorContains(t, err, "missing operation")
}

func TestRunScript(t *testing.T) {
	backend := newFakeBackend()
	backend.results["edit:undo"] = "Undone"
	backend.results["project:recent"] = []string{"a.mdj", "b.mdj"}

	out, err := runScript(t, backend, "# comment\n\nedit undo\nproject recent\n")
	require.NoError(t, err)

	require.Len(t, backend.executed, 2)
	assert.Equal(t, "edit:undo", backend.executed[0].ID())
	assert.Equal(t, "> edit undo\nUndone\n> project recent\na.mdj\nb.mdj\n", out)
}

func TestRunScriptReportsFailures(t *testing.T) {
	backend := newFakeBackend()
	backend.errors["edit:undo"] = errors.New("boom")

	out, err := runScript(t, backend, "edit undo\nedit\nedit redo\n")
	assert.EqualError(t, err, "2 command(s) failed")
	assert.Contains(t, out, "! boom")
	assert.Contains(t, out, `! missing operation for "edit"`)
	assert.Len(t, backend.executed, 2, "later lines still run")
}

func TestRunStopsOnQuit(t *testing.T) {
	backend := newFakeBackend()

	_, err := runScript(t, backend, "quit\nedit undo\n")
	require.NoError(t, err)
	require.Len(t, backend.executed, 1)
	assert.Equal(t, "application:quit", backend.executed[0].ID())
}

func TestHelp(t *testing.T) {
	backend := newFakeBackend()

	out, err := runScript(t, backend, "help\n")
	require.NoError(t, err)
	assert.Contains(t, out, "\nedit:\n")
	assert.Contains(t, out, "\nview:\n")
	assert.Regexp(t, `undo\s+Undo`, out)

	out, err = runScript(t, backend, "help edit undo\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Command: edit undo\nDescription: Revert the last change.\nSyntax: edit undo\nExamples:\n  edit undo\n")

	out, _ = runScript(t, backend, "help nothing\n")
	assert.Contains(t, out, "! unknown scope: nothing")
	assert.Empty(t, backend.executed)
}

func TestCompleter(t *testing.T) {
	pc := completer(newFakeBackend().CommandSpecs())
	var names []string
	for _, child := range pc.GetChildren() {
		names = append(names, strings.TrimSpace(string(child.GetName())))
	}
	assert.Equal(t, []string{"edit", "view", "help"}, names)
	assert.Len(t, pc.GetChildren()[0].GetChildren(), 2)
}

func TestNewCLIRequiresDependencies(t *testing.T) {
	_, err := NewCLI(nil, NewScriptReader(strings.NewReader("")), &bytes.Buffer{}, log.NewNop(), false)
	assert.EqualError(t, err, "backend not initialized")
	_, err = NewCLI(newFakeBackend(), nil, &bytes.Buffer{}, log.NewNop(), false)
	assert.EqualError(t, err, "reader not initialized")
}
