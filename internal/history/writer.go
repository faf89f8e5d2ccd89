package history

import (
	"context"
	"log"
	"sync"
)

// Writer funnels appends from all sessions through one goroutine so the
// store never sees concurrent writers. Persistence is best-effort: a full
// queue or a failing store drops the row with a log line instead of failing
// the negotiation turn that produced it.
type Writer struct {
	logger *log.Logger
	store  Store
	ch     chan Row

	closeOnce sync.Once
	done      chan struct{}
}

func NewWriter(logger *log.Logger, store Store, queueSize int) *Writer {
	if queueSize <= 0 {
		queueSize = 256
	}
	w := &Writer{
		logger: logger,
		store:  store,
		ch:     make(chan Row, queueSize),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

// Append enqueues a row without blocking the caller.
func (w *Writer) Append(row Row) {
	select {
	case w.ch <- row:
	default:
		w.logger.Printf("history queue full, dropping row row_id=%s session_id=%s", row.RowID, row.SessionID)
	}
}

func (w *Writer) run() {
	defer close(w.done)
	for row := range w.ch {
		if err := w.store.Append(context.Background(), row); err != nil {
			w.logger.Printf("history append failed row_id=%s session_id=%s err=%v", row.RowID, row.SessionID, err)
		}
	}
}

// Close drains the queue and stops the writer goroutine.
func (w *Writer) Close() {
	w.closeOnce.Do(func() {
		close(w.ch)
	})
	<-w.done
}
