// Package ledger implements the monotonic request-id allocator and the
// pending-request correlation table described in spec.md §4.3.
package ledger

import (
	"context"
	"errors"
	"sync"
)

// Sentinel errors a Result.Err may hold. Callers compare with errors.Is.
var (
	// ErrTimeout is returned when a pending request's deadline elapses
	// before a matching response arrives.
	ErrTimeout = errors.New("ledger: request timed out")
	// ErrCancelled is returned when the caller explicitly cancels a pending
	// request.
	ErrCancelled = errors.New("ledger: request cancelled")
	// ErrDisconnected is returned for every outstanding request when the
	// connection tears down.
	ErrDisconnected = errors.New("ledger: connection disconnected")
)

// Result is delivered exactly once per registered request: either the raw
// JSON payload of the matching response, or a terminal error.
type Result struct {
	Payload string
	Err     error
}

type entry struct {
	kind     string
	resultCh chan Result
	cancel   context.CancelFunc
}

// Ledger allocates request ids and correlates inbound responses to the
// pending request that sent them. The zero value is not usable; call New.
type Ledger struct {
	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]*entry
}

// New returns an empty Ledger whose first allocated id is 1.
func New() *Ledger {
	return &Ledger{pending: make(map[uint64]*entry)}
}

// Register allocates the next monotonic request id, starts a deadline
// watch bound to ctx, and returns the id plus a function that blocks until
// the request completes (by response, timeout, cancellation, or shutdown).
//
// kind labels the pending entry for diagnostics (e.g. "LAUNCH", "LOAD") and
// plays no role in correlation.
func (l *Ledger) Register(ctx context.Context, kind string) (id uint64, wait func() Result) {
	entryCtx, cancel := context.WithCancel(ctx)

	e := &entry{kind: kind, resultCh: make(chan Result, 1), cancel: cancel}

	l.mu.Lock()
	l.nextID++
	id = l.nextID
	l.pending[id] = e
	l.mu.Unlock()

	go func() {
		<-entryCtx.Done()
		if errors.Is(entryCtx.Err(), context.DeadlineExceeded) {
			l.complete(id, Result{Err: ErrTimeout})
			return
		}
		// context.Canceled: either Complete/Cancel/CancelAll already resolved
		// this entry (complete then finds nothing and does nothing), or the
		// caller's ctx was cancelled, which resolves it with ErrCancelled.
		l.complete(id, Result{Err: ErrCancelled})
	}()

	return id, func() Result { return <-e.resultCh }
}

// complete removes id from the pending table (if still present) and
// delivers res. Returns false if id was unknown or already resolved —
// the inbound response is then silently dropped, per spec.md §4.3.
func (l *Ledger) complete(id uint64, res Result) bool {
	l.mu.Lock()
	e, ok := l.pending[id]
	if ok {
		delete(l.pending, id)
	}
	l.mu.Unlock()
	if !ok {
		return false
	}
	e.cancel()
	e.resultCh <- res
	return true
}

// Complete resolves request id with a successful payload, or with err if
// err is non-nil (the media-channel error-mapping cases in spec.md §4.3).
// Reports whether id was a known, still-pending request.
func (l *Ledger) Complete(id uint64, payload string, err error) bool {
	if err != nil {
		return l.complete(id, Result{Err: err})
	}
	return l.complete(id, Result{Payload: payload})
}

// Cancel removes and resolves id with ErrCancelled. A later matching
// response for this id is silently dropped (Complete returns false).
func (l *Ledger) Cancel(id uint64) {
	l.complete(id, Result{Err: ErrCancelled})
}

// CancelAll resolves every currently outstanding request with err. Unlike
// Cancel it is not scoped to one id: it is for events that invalidate every
// in-flight correlated command without tearing down the connection itself
// (e.g. a RECEIVER_STATUS dropping the launched application, per spec.md
// §4.5 — "any outstanding media requests are cancelled with SessionLost").
func (l *Ledger) CancelAll(err error) {
	l.mu.Lock()
	pending := l.pending
	l.pending = make(map[uint64]*entry)
	l.mu.Unlock()

	for _, e := range pending {
		e.cancel()
		e.resultCh <- Result{Err: err}
	}
}

// Shutdown resolves every outstanding request with ErrDisconnected. Used on
// socket teardown.
func (l *Ledger) Shutdown() {
	l.CancelAll(ErrDisconnected)
}

// Len reports the number of currently outstanding requests. Intended for
// tests and diagnostics.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}
