package event

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"umlforge/local-app/internal/log"
)

type testType int

const (
	typeA testType = iota
	typeB
)

type testEvent struct {
	kind    testType
	payload string
}

func (e testEvent) EventType() testType { return e.kind }

func TestPublishOrder(t *testing.T) {
	m := NewManager[testType, testEvent](log.NewNop())
	var got []string

	m.Subscribe(typeA, func(e testEvent) { got = append(got, "first:"+e.payload) })
	m.Subscribe(typeB, func(e testEvent) { got = append(got, "other:"+e.payload) })
	m.Subscribe(typeA, func(e testEvent) { got = append(got, "second:"+e.payload) })
	m.SubscribeAll(func(e testEvent) { got = append(got, "all:"+e.payload) })

	m.Publish(testEvent{kind: typeA, payload: "x"})

	assert.Equal(t, []string{"first:x", "second:x", "all:x"}, got)
}

func TestPanickingHandlerDoesNotStopOthers(t *testing.T) {
	m := NewManager[testType, testEvent](log.NewNop())
	called := false

	m.Subscribe(typeA, func(testEvent) { panic("handler failure") })
	m.Subscribe(typeA, func(testEvent) { called = true })

	assert.NotPanics(t, func() { m.Publish(testEvent{kind: typeA}) })
	assert.True(t, called)
}

func TestUnsubscribe(t *testing.T) {
	m := NewManager[testType, testEvent](nil)
	count := 0

	unsubscribe := m.Subscribe(typeA, func(testEvent) { count++ })
	unsubscribeAll := m.SubscribeAll(func(testEvent) { count++ })

	m.Publish(testEvent{kind: typeA})
	unsubscribe()
	unsubscribeAll()
	m.Publish(testEvent{kind: typeA})

	assert.Equal(t, 2, count)
}
