package websocket

import (
	"github.com/ekobres/spook/internal/core/actions"
	"github.com/ekobres/spook/internal/core/entityfilter"
	"github.com/ekobres/spook/internal/core/registry"
)

// WatchOptions pushes options_invalidated whenever the selector memo is dropped
func (h *Hub) WatchOptions(provider *entityfilter.OptionProvider) {
	provider.OnInvalidate(func(kind registry.ChangeKind) {
		h.Publish(TopicOptions, OptionsInvalidatedMessage(string(kind)))
	})
}

// WatchRegistry pushes registry_changed with the snapshot size on every
// registry change.
func (h *Hub) WatchRegistry(store *registry.Store) {
	store.OnChange(func(kind registry.ChangeKind) {
		h.Publish(TopicRegistry, RegistryChangedMessage(string(kind), store.Stats()))
	})
}

// WatchCalls pushes action_called for every served call
func (h *Hub) WatchCalls(runner *actions.Runner) {
	runner.OnCall(func(call actions.Call) {
		h.Publish(TopicCalls, ActionCalledMessage(call.RequestID, call.Action, call.Transport, call.Matched, call.DurationMS(), call.Error))
	})
}

// ConnectionStateHandler returns a callback publishing connection_status
func (h *Hub) ConnectionStateHandler() func(connected bool) {
	return func(connected bool) {
		h.Publish(TopicRegistry, ConnectionStatusMessage(connected))
	}
}
