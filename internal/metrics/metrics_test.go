package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umlforge/local-app/internal/log"
	"umlforge/local-app/internal/repository"
)

func TestObserveRepository(t *testing.T) {
	r, err := repository.NewRepository(repository.DefaultRegistry(), log.NewNop())
	require.NoError(t, err)
	c := NewCollector()
	stop := c.ObserveRepository(r)

	project, err := r.NewElement(repository.TypeProject)
	require.NoError(t, err)
	class, err := r.NewElement(repository.TypeClass)
	require.NoError(t, err)

	require.NoError(t, r.DoOperation(repository.NewTransaction("Create root", repository.Create(project, nil, "", -1))))
	require.NoError(t, r.DoOperation(repository.NewTransaction("Add class",
		repository.Create(class, project, repository.FieldOwnedElements, -1),
		repository.Update(class, repository.FieldName, "A"),
	)))
	_, err = r.Undo()
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Transactions.WithLabelValues("do")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Transactions.WithLabelValues("undo")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Operations.WithLabelValues("create")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Operations.WithLabelValues("update")), "the undo applies the inverted update")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Operations.WithLabelValues("delete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Elements))

	stop()
	_, err = r.Redo()
	require.NoError(t, err)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.Transactions.WithLabelValues("redo")))
}

func TestRecordCommandAndBackup(t *testing.T) {
	c := NewCollector()
	c.RecordCommand("edit:undo", nil, 5*time.Millisecond)
	c.RecordCommand("edit:undo", nil, time.Millisecond)
	c.RecordCommand("project:open", errors.New("missing file"), time.Millisecond)
	c.RecordBackup("written")
	c.SetElements(7)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Commands.WithLabelValues("edit:undo", StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Commands.WithLabelValues("project:open", StatusError)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.Backups))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.Elements))

	lines, err := c.Summary()
	require.NoError(t, err)
	assert.Equal(t, []string{
		`umlforge_backups_total{result="written"} 1`,
		`umlforge_command_duration_seconds{command="edit:undo"} 2`,
		`umlforge_command_duration_seconds{command="project:open"} 1`,
		`umlforge_commands_total{command="edit:undo",status="ok"} 2`,
		`umlforge_commands_total{command="project:open",status="error"} 1`,
		`umlforge_elements 7`,
	}, lines)
}

func TestCollectorsAreIndependent(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	a.RecordBackup("written")
	assert.Equal(t, 0, testutil.CollectAndCount(b.Backups))
	assert.NotSame(t, a.Registry(), b.Registry())
}
