package daemonrun

import (
	"context"
	"fmt"
	"strings"

	"poolpack/internal/config"
	"poolpack/internal/ledger"
	"poolpack/internal/store"
)

// OpenLedger returns the usage sink selected by ledger.backend and a function
// that releases it. The sqlite backend shares st.
func OpenLedger(ctx context.Context, cfg *config.Config, st *store.Store) (ledger.Sink, func(), error) {
	noop := func() {}
	switch strings.ToLower(strings.TrimSpace(cfg.Ledger.Backend)) {
	case "", "sqlite":
		if st == nil {
			return nil, noop, fmt.Errorf("sqlite ledger requires an open store")
		}
		return st, noop, nil
	case "redis":
		sink, err := ledger.NewRedisSink(ctx, cfg.Ledger.RedisURL, cfg.Ledger.RedisStream)
		if err != nil {
			return nil, noop, err
		}
		return sink, func() { _ = sink.Close() }, nil
	case "none":
		return ledger.Nop{}, noop, nil
	default:
		return nil, noop, fmt.Errorf("unsupported ledger backend %q", cfg.Ledger.Backend)
	}
}
