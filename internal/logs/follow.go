package logs

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Matcher reports whether a log line should be emitted.
type Matcher func(line string) bool

// Contains matches lines holding any of the given substrings. With no
// non-blank needles every line matches.
func Contains(needles ...string) Matcher {
	var cleaned []string
	for _, n := range needles {
		if n = strings.TrimSpace(n); n != "" {
			cleaned = append(cleaned, n)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}
	return func(line string) bool {
		for _, n := range cleaned {
			if strings.Contains(line, n) {
				return true
			}
		}
		return false
	}
}

// Follow emits the last `last` lines of path and then keeps emitting new
// lines until ctx is cancelled. Cancellation is not reported as an error.
func Follow(ctx context.Context, path string, last int, match Matcher, emit func(string)) error {
	res, err := Tail(ctx, path, Options{Offset: -1, Limit: last})
	if err != nil {
		return err
	}
	offset := res.Offset
	for {
		for _, line := range res.Lines {
			if match == nil || match(line) {
				emit(line)
			}
		}
		if len(res.Lines) == 0 {
			// Tail returns at once while the file is missing.
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pollInterval):
			}
		} else if ctx.Err() != nil {
			return nil
		}
		res, err = Tail(ctx, path, Options{Offset: offset, Follow: true, Wait: 2 * time.Second})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		offset = res.Offset
	}
}
