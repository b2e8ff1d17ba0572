// Package channel defines the delivery channel interface and registry.
// Concrete channels (push, sms, email) plug in as strategies.
package channel

import "context"

// Notification is the channel-independent delivery content built from a
// dispatch event.
type Notification struct {
	AlertID  string
	Category string
	Scope    string
	Severity string
	Reason   string // CREATED or ESCALATED
	EventTS  int64  // Unix seconds
}

// Sender is the interface all delivery channels implement.
type Sender interface {
	// Name returns the channel name (e.g. "push", "sms", "email").
	Name() string

	// Target returns the configured destination, recorded per attempt.
	Target() string

	// Send delivers the notification to the channel's target.
	Send(ctx context.Context, n *Notification) error
}

// Registry manages delivery channel strategies.
type Registry struct {
	senders map[string]Sender
	order   []string
}

// NewRegistry creates a new channel registry.
func NewRegistry() *Registry {
	return &Registry{senders: make(map[string]Sender)}
}

// Register registers a channel strategy.
func (r *Registry) Register(s Sender) {
	if _, ok := r.senders[s.Name()]; !ok {
		r.order = append(r.order, s.Name())
	}
	r.senders[s.Name()] = s
}

// Get retrieves a channel by name.
func (r *Registry) Get(name string) (Sender, bool) {
	s, ok := r.senders[name]
	return s, ok
}

// List returns all registered channel names in registration order.
func (r *Registry) List() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
