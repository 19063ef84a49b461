package hook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/grimeditor/grim/internal/event"
	"github.com/grimeditor/grim/internal/event/topic"
)

// mockPluginHost implements PluginHost for testing.
type mockPluginHost struct {
	name      string
	functions map[string]func(args ...interface{}) ([]interface{}, error)
}

func newMockPluginHost(name string) *mockPluginHost {
	return &mockPluginHost{
		name:      name,
		functions: make(map[string]func(args ...interface{}) ([]interface{}, error)),
	}
}

func (m *mockPluginHost) Name() string { return m.name }

func (m *mockPluginHost) Call(fn string, args ...interface{}) ([]interface{}, error) {
	if handler, ok := m.functions[fn]; ok {
		return handler(args...)
	}
	return nil, errors.New("function not found")
}

func (m *mockPluginHost) HasFunction(name string) bool {
	_, ok := m.functions[name]
	return ok
}

func (m *mockPluginHost) AddFunction(name string, handler func(args ...interface{}) ([]interface{}, error)) {
	m.functions[name] = handler
}

func newTestBus(t *testing.T) event.Bus {
	t.Helper()
	bus := event.NewBus()
	if err := bus.Start(); err != nil {
		t.Fatalf("bus.Start() error = %v", err)
	}
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })
	return bus
}

func TestNamespaceOnRejectsUnknownFunction(t *testing.T) {
	bus := newTestBus(t)
	plugin := newMockPluginHost("myplugin")
	ns := NewNamespace("myplugin", bus, plugin)

	if err := ns.On("buffer.saved", "onSave"); err == nil {
		t.Error("expected error registering hook for unknown function")
	}
}

func TestNamespaceOnInvokesPluginFunction(t *testing.T) {
	bus := newTestBus(t)
	plugin := newMockPluginHost("myplugin")

	called := make(chan struct{}, 1)
	plugin.AddFunction("onSave", func(args ...interface{}) ([]interface{}, error) {
		called <- struct{}{}
		return nil, nil
	})

	ns := NewNamespace("myplugin", bus, plugin)
	if err := ns.On("buffer.saved", "onSave"); err != nil {
		t.Fatalf("On() error = %v", err)
	}

	env := event.Envelope{Topic: topic.Topic("buffer.saved"), Payload: map[string]any{"path": "a.go"}}
	if err := bus.PublishSync(context.Background(), env); err != nil {
		t.Fatalf("PublishSync() error = %v", err)
	}

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("plugin hook was not invoked")
	}
}

func TestNamespaceOnReplacesPreviousHandler(t *testing.T) {
	bus := newTestBus(t)
	plugin := newMockPluginHost("myplugin")

	firstCalls, secondCalls := 0, 0
	plugin.AddFunction("first", func(args ...interface{}) ([]interface{}, error) {
		firstCalls++
		return nil, nil
	})
	plugin.AddFunction("second", func(args ...interface{}) ([]interface{}, error) {
		secondCalls++
		return nil, nil
	})

	ns := NewNamespace("myplugin", bus, plugin)
	if err := ns.On("buffer.saved", "first"); err != nil {
		t.Fatalf("On() error = %v", err)
	}
	if err := ns.On("buffer.saved", "second"); err != nil {
		t.Fatalf("On() error = %v", err)
	}

	env := event.Envelope{Topic: topic.Topic("buffer.saved")}
	if err := bus.PublishSync(context.Background(), env); err != nil {
		t.Fatalf("PublishSync() error = %v", err)
	}

	if firstCalls != 0 {
		t.Errorf("first handler should have been replaced, got %d calls", firstCalls)
	}
	if secondCalls != 1 {
		t.Errorf("second handler should have been called once, got %d", secondCalls)
	}
}

func TestNamespaceOffRemovesHandler(t *testing.T) {
	bus := newTestBus(t)
	plugin := newMockPluginHost("myplugin")

	calls := 0
	plugin.AddFunction("onSave", func(args ...interface{}) ([]interface{}, error) {
		calls++
		return nil, nil
	})

	ns := NewNamespace("myplugin", bus, plugin)
	if err := ns.On("buffer.saved", "onSave"); err != nil {
		t.Fatalf("On() error = %v", err)
	}
	ns.Off("buffer.saved")

	env := event.Envelope{Topic: topic.Topic("buffer.saved")}
	if err := bus.PublishSync(context.Background(), env); err != nil {
		t.Fatalf("PublishSync() error = %v", err)
	}
	if calls != 0 {
		t.Errorf("handler should not fire after Off(), got %d calls", calls)
	}
	if topics := ns.Topics(); len(topics) != 0 {
		t.Errorf("expected no topics after Off(), got %v", topics)
	}
}

func TestNamespaceCloseUnsubscribesAll(t *testing.T) {
	bus := newTestBus(t)
	plugin := newMockPluginHost("myplugin")
	plugin.AddFunction("onSave", func(args ...interface{}) ([]interface{}, error) { return nil, nil })
	plugin.AddFunction("onOpen", func(args ...interface{}) ([]interface{}, error) { return nil, nil })

	ns := NewNamespace("myplugin", bus, plugin)
	if err := ns.On("buffer.saved", "onSave"); err != nil {
		t.Fatalf("On() error = %v", err)
	}
	if err := ns.On("buffer.opened", "onOpen"); err != nil {
		t.Fatalf("On() error = %v", err)
	}

	ns.Close()

	if topics := ns.Topics(); len(topics) != 0 {
		t.Errorf("expected no topics after Close(), got %v", topics)
	}
}

func TestNamespaceOnPropagatesHandlerFailure(t *testing.T) {
	bus := newTestBus(t)
	plugin := newMockPluginHost("myplugin")
	plugin.AddFunction("onSave", func(args ...interface{}) ([]interface{}, error) {
		return []interface{}{"boom"}, nil
	})

	ns := NewNamespace("myplugin", bus, plugin)
	if err := ns.On("buffer.saved", "onSave"); err != nil {
		t.Fatalf("On() error = %v", err)
	}

	env := event.Envelope{Topic: topic.Topic("buffer.saved")}
	if err := bus.PublishSync(context.Background(), env); err != nil {
		t.Fatalf("PublishSync() error = %v", err)
	}
	if got := bus.Stats().HandlerErrors; got != 1 {
		t.Errorf("expected the handler failure to be recorded as a handler error, got %d", got)
	}
}
