// internal/room/writer.go
package room

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// writeOp is the backend work owed for one room: an optional delete followed
// by an optional save of the selected parts of rec.
type writeOp struct {
	del bool
	rec *Record
	sel Selector
}

// merge folds a later op for the same room into o. Records are never
// modified in place; a merged save gets a fresh Record.
func (o *writeOp) merge(next *writeOp) {
	if next.del {
		*o = *next
		return
	}
	if o.rec == nil {
		o.rec, o.sel = next.rec, next.sel
		return
	}
	rec := *o.rec
	rec.Metadata = next.rec.Metadata
	if next.sel.Has(SelectPlayers) {
		rec.Players = next.rec.Players
	}
	if next.sel.Has(SelectGame) {
		rec.Game = next.rec.Game
	}
	if next.sel.Has(SelectChat) {
		rec.Chat = next.rec.Chat
	}
	o.rec = &rec
	o.sel |= next.sel
}

// covers reports whether o alone determines the stored record, so the
// backend need not be read to know what it will hold.
func (o *writeOp) covers() bool {
	return o.del || o.sel == SelectAll
}

// applyTo returns base as it will read once o is written. A nil result means
// the record will be gone.
func (o *writeOp) applyTo(base *Record) *Record {
	if o.del {
		base = nil
	}
	if o.rec == nil {
		return base
	}
	out := &Record{}
	if base != nil {
		*out = *base
	}
	out.Metadata = o.rec.Metadata
	if o.sel.Has(SelectPlayers) {
		out.Players = o.rec.Players
	}
	if o.sel.Has(SelectGame) {
		out.Game = o.rec.Game
	}
	if o.sel.Has(SelectChat) {
		out.Chat = o.rec.Chat
	}
	return out
}

// writer applies room writes to the backend on its own goroutine. Writes for
// the same room are coalesced while they wait, so a stalled backend holds at
// most one op per room. A failed op is kept and folded into the next write
// for that room.
type writer struct {
	backend Backend
	logger  *logrus.Logger
	timeout time.Duration

	mu       sync.Mutex
	pending  map[string]*writeOp
	order    []string
	inflight string
	current  *writeOp
	failed   map[string]*writeOp
	lastErr  error
	waiters  []chan struct{}

	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func newWriter(backend Backend, logger *logrus.Logger, timeout time.Duration) *writer {
	w := &writer{
		backend: backend,
		logger:  logger,
		timeout: timeout,
		pending: make(map[string]*writeOp),
		failed:  make(map[string]*writeOp),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *writer) enqueue(id string, op *writeOp) {
	w.mu.Lock()
	if cur, ok := w.pending[id]; ok {
		cur.merge(op)
	} else {
		if f, ok := w.failed[id]; ok {
			delete(w.failed, id)
			f.merge(op)
			op = f
		}
		w.pending[id] = op
		w.order = append(w.order, id)
	}
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// unwritten returns a copy of everything owed to the backend for id, or nil
// when the backend is up to date.
func (w *writer) unwritten(id string) *writeOp {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out *writeOp
	if w.inflight == id {
		c := *w.current
		out = &c
	} else if f, ok := w.failed[id]; ok {
		c := *f
		out = &c
	}
	if p, ok := w.pending[id]; ok {
		if out == nil {
			c := *p
			out = &c
		} else {
			out.merge(p)
		}
	}
	return out
}

func (w *writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		case <-w.wake:
		}
		for {
			id, op, ok := w.next()
			if !ok {
				break
			}
			w.finish(id, op, w.apply(id, op))
		}
	}
}

func (w *writer) next() (string, *writeOp, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.order) == 0 {
		for _, ch := range w.waiters {
			close(ch)
		}
		w.waiters = nil
		return "", nil, false
	}
	id := w.order[0]
	w.order = w.order[1:]
	op := w.pending[id]
	delete(w.pending, id)
	w.inflight, w.current = id, op
	return id, op, true
}

func (w *writer) apply(id string, op *writeOp) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if op.del {
		if err := w.backend.Delete(ctx, id); err != nil {
			return err
		}
	}
	if op.rec != nil {
		return w.backend.Save(ctx, op.rec, op.sel)
	}
	return nil
}

func (w *writer) finish(id string, op *writeOp, err error) {
	if err != nil {
		w.logger.WithField("room", id).WithError(err).Warn("persist failed, continuing memory-only")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inflight, w.current = "", nil
	if err == nil {
		return
	}
	w.lastErr = fmt.Errorf("room %s: %w", id, err)
	if next, ok := w.pending[id]; ok {
		op.merge(next)
		w.pending[id] = op
		return
	}
	w.failed[id] = op
}

// flush waits until every queued write has been attempted and returns the
// most recent failure since the previous flush.
func (w *writer) flush(ctx context.Context) error {
	w.mu.Lock()
	if len(w.order) > 0 || w.inflight != "" {
		ch := make(chan struct{})
		w.waiters = append(w.waiters, ch)
		w.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		w.mu.Lock()
	}
	defer w.mu.Unlock()
	err := w.lastErr
	w.lastErr = nil
	return err
}

func (w *writer) close() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}
