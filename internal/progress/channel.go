package progress

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrClosed is returned for events emitted after the terminal event.
	ErrClosed = errors.New("progress stream closed")
	// ErrSequence is returned when an event would break the stream lifecycle.
	ErrSequence = errors.New("progress event out of sequence")
)

type phase int

const (
	phaseIdle phase = iota
	phaseRunning
	phaseGenerating
	phaseDone
)

// Channel enforces the event lifecycle on top of a Sink. The first delivery
// failure is sticky: the sink is never written again and every later Emit
// returns the same error, which lets the producer detect a departed client.
type Channel struct {
	sink Sink

	mu      sync.Mutex
	phase   phase
	total   int
	current int
	err     error
}

// NewChannel wraps sink.
func NewChannel(sink Sink) *Channel {
	return &Channel{sink: sink}
}

// Emit validates event against the lifecycle and forwards it to the sink.
func (c *Channel) Emit(event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if c.phase == phaseDone {
		return ErrClosed
	}
	if err := c.advance(event); err != nil {
		return err
	}
	if err := c.sink.Emit(event); err != nil {
		c.err = err
		return err
	}
	return nil
}

func (c *Channel) advance(event Event) error {
	switch event.Type {
	case TypeStart:
		if c.phase != phaseIdle {
			return fmt.Errorf("%w: duplicate start", ErrSequence)
		}
		c.total = event.Total
		c.phase = phaseRunning
	case TypeProgress:
		if c.phase != phaseRunning {
			return fmt.Errorf("%w: progress outside running phase", ErrSequence)
		}
		if event.Current != c.current+1 || event.Current > c.total || event.Total != c.total {
			return fmt.Errorf("%w: progress %d/%d after %d/%d", ErrSequence, event.Current, event.Total, c.current, c.total)
		}
		c.current = event.Current
	case TypeGenerating:
		if c.phase != phaseRunning || c.current != c.total {
			return fmt.Errorf("%w: generating before all items processed", ErrSequence)
		}
		c.phase = phaseGenerating
	case TypeComplete:
		if c.phase != phaseGenerating {
			return fmt.Errorf("%w: complete before generating", ErrSequence)
		}
		c.phase = phaseDone
	case TypeError:
		c.phase = phaseDone
	default:
		return fmt.Errorf("%w: unknown event type %q", ErrSequence, event.Type)
	}
	return nil
}

// Err returns the first sink delivery failure, if any.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done reports whether a terminal event was accepted.
func (c *Channel) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase == phaseDone
}

// Processed returns the last progress counter delivered.
func (c *Channel) Processed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}
