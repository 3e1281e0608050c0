package assistant

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

var ErrSessionNotFound = errors.New("assistant session not found")

const sinkPublishTimeout = 2 * time.Second

// Sink receives every event of every session, for example to mirror them
// onto a message bus.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// SessionCounter is implemented by observers that track live sessions.
type SessionCounter interface {
	SessionsActive(n int)
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// IdleTTL evicts sessions that have not been touched for this long.
	IdleTTL time.Duration
	// CleanupInterval is how often expired sessions are swept. Zero disables
	// the background sweeper; call Sweep instead.
	CleanupInterval time.Duration

	Clock     clockwork.Clock
	Completer Completer
	Timing    Timing
	Logger    *logrus.Entry
	Observer  Observer
	Sinks     []Sink
}

// Registry owns the orchestrators of every connected overlay, keyed by
// session id. Idle sessions are evicted and shut down.
type Registry struct {
	opts   RegistryOptions
	logger *logrus.Entry
	items  *cache.Cache
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewRegistry returns an empty registry.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	r := &Registry{
		opts:   opts,
		logger: logger,
		items:  cache.New(opts.IdleTTL, opts.CleanupInterval),
	}
	r.items.OnEvicted(func(id string, value interface{}) {
		if o, ok := value.(*Orchestrator); ok {
			o.Shutdown()
		}
		r.logger.WithField("session", id).Info("assistant session evicted")
		r.reportCount()
	})
	return r
}

// Create starts a new closed session.
func (r *Registry) Create() (*Orchestrator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrShutdown
	}

	id := uuid.NewString()
	o := New(Options{
		ID:        id,
		Clock:     r.opts.Clock,
		Completer: r.opts.Completer,
		Timing:    r.opts.Timing,
		Logger:    r.logger,
		Observer:  r.opts.Observer,
	})

	if len(r.opts.Sinks) > 0 {
		events, _ := o.Subscribe()
		r.wg.Add(1)
		go r.forward(id, events)
	}

	r.items.SetDefault(id, o)
	r.logger.WithField("session", id).Info("assistant session created")
	r.reportCount()
	return o, nil
}

// Get returns the session and refreshes its idle deadline.
func (r *Registry) Get(id string) (*Orchestrator, error) {
	value, ok := r.items.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	o := value.(*Orchestrator)
	// Replace fails once the janitor has evicted the session, so a shut down
	// orchestrator is never put back.
	if err := r.items.Replace(id, o, cache.DefaultExpiration); err != nil {
		return nil, ErrSessionNotFound
	}
	return o, nil
}

// Touch refreshes the idle deadline of a session driven over a long-lived
// connection.
func (r *Registry) Touch(id string) error {
	_, err := r.Get(id)
	return err
}

// Delete shuts the session down and forgets it.
func (r *Registry) Delete(id string) error {
	if _, ok := r.items.Get(id); !ok {
		return ErrSessionNotFound
	}
	r.items.Delete(id)
	return nil
}

// Len returns the number of live sessions, expired ones included until swept.
func (r *Registry) Len() int {
	return r.items.ItemCount()
}

// Sweep evicts expired sessions now.
func (r *Registry) Sweep() {
	r.items.DeleteExpired()
}

// Close shuts down every session and waits for event forwarding to drain.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.items.DeleteExpired()
	for id := range r.items.Items() {
		r.items.Delete(id)
	}
	r.wg.Wait()
}

func (r *Registry) forward(id string, events <-chan Event) {
	defer r.wg.Done()

	for event := range events {
		for _, sink := range r.opts.Sinks {
			ctx, cancel := context.WithTimeout(context.Background(), sinkPublishTimeout)
			if err := sink.Publish(ctx, event); err != nil {
				r.logger.WithError(err).WithFields(logrus.Fields{
					"session": id,
					"event":   event.Type,
				}).Warn("failed to publish assistant event")
			}
			cancel()
		}
	}
}

func (r *Registry) reportCount() {
	if counter, ok := r.opts.Observer.(SessionCounter); ok {
		counter.SessionsActive(r.items.ItemCount())
	}
}
