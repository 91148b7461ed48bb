package session

import (
	"context"
	"sync"

	apperrors "github.com/yanqian/temppredict/pkg/errors"
)

const (
	CodeInFlight   = "request_in_flight"
	CodeSuperseded = "request_superseded"
)

// Tracker allows one outstanding call per (browser context, operation) and
// records a generation per context so late results can be recognised as stale.
type Tracker struct {
	mu       sync.Mutex
	contexts map[string]*contextState
}

type contextState struct {
	generation uint64
	active     map[string]struct{}
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{contexts: make(map[string]*contextState)}
}

// Ticket represents one admitted call.
type Ticket struct {
	tracker    *Tracker
	ctx        context.Context
	contextID  string
	operation  string
	state      *contextState
	generation uint64
	once       sync.Once
}

// Begin admits a call or fails with request_in_flight when the same operation is outstanding.
func (t *Tracker) Begin(ctx context.Context, contextID, operation string) (*Ticket, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.contexts[contextID]
	if !ok {
		st = &contextState{active: make(map[string]struct{})}
		t.contexts[contextID] = st
	}
	if _, busy := st.active[operation]; busy {
		return nil, apperrors.Wrap(CodeInFlight, "a "+operation+" request is already in flight", nil)
	}
	st.active[operation] = struct{}{}
	return &Ticket{
		tracker:    t,
		ctx:        ctx,
		contextID:  contextID,
		operation:  operation,
		state:      st,
		generation: st.generation,
	}, nil
}

// Invalidate marks every outstanding ticket of contextID as stale.
func (t *Tracker) Invalidate(contextID string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.contexts[contextID]; ok {
		st.generation++
	}
}

// Outstanding reports how many operations of contextID are in flight.
func (t *Tracker) Outstanding(contextID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.contexts[contextID]; ok {
		return len(st.active)
	}
	return 0
}

// Operation returns the operation name of the ticket.
func (tk *Ticket) Operation() string {
	return tk.operation
}

// Current is false once the requesting view is gone or the session changed.
func (tk *Ticket) Current() bool {
	if tk.ctx.Err() != nil {
		return false
	}
	tk.tracker.mu.Lock()
	defer tk.tracker.mu.Unlock()
	return tk.state.generation == tk.generation
}

// Done releases the slot. It is safe to call more than once.
func (tk *Ticket) Done() {
	tk.once.Do(func() {
		t := tk.tracker
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(tk.state.active, tk.operation)
		if len(tk.state.active) == 0 && t.contexts[tk.contextID] == tk.state {
			delete(t.contexts, tk.contextID)
		}
	})
}

// Superseded is the error handlers return instead of applying a stale result.
func Superseded(operation string) error {
	return apperrors.Wrap(CodeSuperseded, operation+" result discarded because the view changed", nil)
}
