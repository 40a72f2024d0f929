package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"poolpack/internal/logging"
	"poolpack/internal/services"
)

// Async records usage on a background goroutine with its own timeout.
type Async struct {
	sink    Sink
	timeout time.Duration
	logger  *slog.Logger

	wg sync.WaitGroup
}

// NewAsync wraps sink. A non-positive timeout defaults to ten seconds.
func NewAsync(sink Sink, timeout time.Duration, logger *slog.Logger) *Async {
	if sink == nil {
		sink = Nop{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Async{sink: sink, timeout: timeout, logger: logging.NewComponentLogger(logger, "ledger")}
}

// Record schedules usage for recording and returns immediately. The request
// context only contributes log fields; cancellation of the caller does not
// cancel the write.
func (a *Async) Record(ctx context.Context, usage []Usage) error {
	if len(usage) == 0 {
		return nil
	}
	logger := logging.WithContext(ctx, a.logger)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		writeCtx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.sink.Record(writeCtx, usage); err != nil {
			err = services.Wrap(services.ErrLedgerWrite, "ledger", "record", "usage write failed", err)
			logging.WarnWithContext(logger, "usage ledger write failed", "ledger_write_failed",
				logging.Int("records", len(usage)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check ledger backend connectivity"),
				logging.String(logging.FieldImpact, "delivery succeeded but was not recorded"),
			)
			return
		}
		logger.Debug("usage recorded", logging.Int("records", len(usage)))
	}()
	return nil
}

// Wait blocks until every scheduled write finished.
func (a *Async) Wait() {
	a.wg.Wait()
}
