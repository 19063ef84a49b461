// Package hook implements per-plugin lifecycle event registration: a
// plugin calls ks.event.on(topic, fn) to receive BufferEventBus
// notifications, and the manager tears down exactly that plugin's
// subscriptions when it is unloaded.
package hook

import (
	"context"
	"fmt"
	"sync"

	"github.com/grimeditor/grim/internal/event"
	"github.com/grimeditor/grim/internal/event/topic"
)

// PluginHost defines the interface for plugin host operations.
// This is used to avoid circular imports with the main plugin package.
type PluginHost interface {
	// Name returns the plugin name.
	Name() string

	// Call calls a global Lua function in the plugin.
	Call(fn string, args ...interface{}) ([]interface{}, error)

	// HasFunction returns true if the plugin has the named global function.
	HasFunction(name string) bool
}

// PluginManager defines the interface for plugin manager operations.
type PluginManager interface {
	// Get returns a plugin by name.
	Get(name string) PluginHost

	// Active returns all active plugins.
	Active() []PluginHost
}

// Namespace manages the lifecycle-event subscriptions registered by a
// single plugin against the shared BufferEventBus.
type Namespace struct {
	mu         sync.Mutex
	pluginName string
	bus        event.Bus
	host       PluginHost
	subs       map[string]event.Subscription // hook name -> subscription
}

// NewNamespace creates a hook namespace for a plugin, bound to the given
// event bus and plugin host.
func NewNamespace(pluginName string, bus event.Bus, host PluginHost) *Namespace {
	return &Namespace{
		pluginName: pluginName,
		bus:        bus,
		host:       host,
		subs:       make(map[string]event.Subscription),
	}
}

// On registers a Lua function as the handler for a lifecycle topic
// (e.g. "buffer.content.inserted", "buffer.saved"). Re-registering the
// same topic replaces the previous handler.
func (n *Namespace) On(topicPattern string, fnName string) error {
	if topicPattern == "" {
		return fmt.Errorf("hook: topic cannot be empty")
	}
	if fnName == "" {
		return fmt.Errorf("hook: function name cannot be empty")
	}
	if !n.host.HasFunction(fnName) {
		return fmt.Errorf("hook: plugin %q has no function %q", n.pluginName, fnName)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if old, ok := n.subs[topicPattern]; ok {
		_ = n.bus.Unsubscribe(old)
	}

	handler := event.HandlerFunc(func(ctx context.Context, evt any) error {
		results, err := n.host.Call(fnName, extractPayload(evt))
		if err != nil {
			return fmt.Errorf("plugin %q hook %q: %w", n.pluginName, fnName, err)
		}
		return interpretResult(results)
	})

	sub, err := n.bus.Subscribe(topic.Topic(topicPattern), handler)
	if err != nil {
		return fmt.Errorf("hook: subscribe %q: %w", topicPattern, err)
	}

	n.subs[topicPattern] = sub
	return nil
}

// Off removes the handler registered for a topic, if any.
func (n *Namespace) Off(topicPattern string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	sub, ok := n.subs[topicPattern]
	if !ok {
		return
	}
	_ = n.bus.Unsubscribe(sub)
	delete(n.subs, topicPattern)
}

// Topics returns the lifecycle topics this namespace currently handles.
func (n *Namespace) Topics() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	topics := make([]string, 0, len(n.subs))
	for t := range n.subs {
		topics = append(topics, t)
	}
	return topics
}

// Close unsubscribes every hook registered by this plugin. Called when
// the plugin is unloaded.
func (n *Namespace) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for topicPattern, sub := range n.subs {
		_ = n.bus.Unsubscribe(sub)
		delete(n.subs, topicPattern)
	}
}

// extractPayload pulls the Lua-friendly payload out of an event. Envelope
// and Event[T] wrap their payload; anything else is passed through as-is.
func extractPayload(evt any) any {
	switch e := evt.(type) {
	case event.Envelope:
		return e.Payload
	default:
		return evt
	}
}

// interpretResult mirrors the command-handler convention used elsewhere in
// the plugin API: nil or true means success, a non-empty string or false
// means failure.
func interpretResult(results []interface{}) error {
	if len(results) == 0 {
		return nil
	}
	switch v := results[0].(type) {
	case nil:
		return nil
	case bool:
		if v {
			return nil
		}
		return fmt.Errorf("hook handler returned failure")
	case string:
		if v != "" {
			return fmt.Errorf("%s", v)
		}
		return nil
	default:
		return nil
	}
}
