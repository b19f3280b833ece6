// Package query runs a view's data fetch so that only the newest run may
// update the view, and nothing does once the view has gone away.
package query

import (
	"context"
	"reflect"
	"sync"
)

type Status int

const (
	Loading Status = iota
	Failed
	Empty
	Ready
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Failed:
		return "error"
	case Empty:
		return "empty"
	case Ready:
		return "ready"
	}
	return "unknown"
}

// State is what a view renders: exactly one of the four statuses.
type State[T any] struct {
	Key     string
	Status  Status
	Data    T
	Err     error
	Message string
}

type Option[T any] func(*Query[T])

// WithEmpty decides when fetched data counts as empty. The default treats
// nil and zero-length slices, maps and pointers as empty.
func WithEmpty[T any](f func(T) bool) Option[T] { return func(q *Query[T]) { q.empty = f } }

// WithMessage turns a fetch error into user-facing text.
func WithMessage[T any](f func(error) string) Option[T] { return func(q *Query[T]) { q.message = f } }

type Query[T any] struct {
	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	closed  bool
	state   State[T]
	empty   func(T) bool
	message func(error) string
}

func New[T any](opts ...Option[T]) *Query[T] {
	q := &Query[T]{
		empty:   isEmpty[T],
		message: func(err error) string { return err.Error() },
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Run cancels any run still in flight and fetches again. The result is
// committed only if this is still the newest run, the query is open and ctx
// is live; current reports whether that happened. A stale result is returned
// for inspection but never becomes State.
func (q *Query[T]) Run(ctx context.Context, key string, fetch func(context.Context) (T, error)) (st State[T], current bool) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return State[T]{Key: key, Status: Loading}, false
	}
	if q.cancel != nil {
		q.cancel()
	}
	q.seq++
	mine := q.seq
	runCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.state = State[T]{Key: key, Status: Loading}
	q.mu.Unlock()
	defer cancel()

	data, err := fetch(runCtx)
	st = q.triage(key, data, err)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || mine != q.seq || ctx.Err() != nil {
		return st, false
	}
	q.state = st
	q.cancel = nil
	return st, true
}

func (q *Query[T]) triage(key string, data T, err error) State[T] {
	switch {
	case err != nil:
		return State[T]{Key: key, Status: Failed, Err: err, Message: q.message(err)}
	case q.empty(data):
		return State[T]{Key: key, Status: Empty, Data: data}
	default:
		return State[T]{Key: key, Status: Ready, Data: data}
	}
}

// State is the last committed state, Loading before any run finishes.
func (q *Query[T]) State() State[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Close cancels an in-flight run and discards every later result.
func (q *Query[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
}

func isEmpty[T any](v T) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Invalid:
		return true
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
