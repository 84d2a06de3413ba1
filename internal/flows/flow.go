// Package flows holds the fixed automation handlers, one per classified
// intent. Flows are compiled behaviors keyed through a handler registry,
// not user-editable graphs.
package flows

import (
	"context"

	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/classify"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
)

// FlowContext is the immutable per-event snapshot a handler works from.
// Config is a copy taken from the registry; handlers never see process-wide
// mutable tenant state.
type FlowContext struct {
	Tenant *models.Tenant
	Config *models.TenantConfig
	Client *models.Client
	Event  *models.InboundEvent

	// Stale is set when the config is a last-known-good copy served after
	// a reload failure.
	Stale bool
}

// Result is what a handler produced: an optional reply to send through the
// tenant's messaging instance and whether the event needs a human.
type Result struct {
	Reply   string
	Handoff bool
}

// Handler is one automation flow.
type Handler interface {
	Handle(ctx context.Context, fc *FlowContext) (*Result, error)
}

// Registry maps intents to handlers. Intents with no handler route to
// human handoff in the dispatcher.
type Registry struct {
	handlers map[classify.Intent]Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[classify.Intent]Handler),
	}
}

// Register binds a handler to an intent, replacing any previous binding.
func (r *Registry) Register(intent classify.Intent, h Handler) {
	r.handlers[intent] = h
}

// Lookup returns the handler for an intent.
func (r *Registry) Lookup(intent classify.Intent) (Handler, bool) {
	h, ok := r.handlers[intent]
	return h, ok
}
