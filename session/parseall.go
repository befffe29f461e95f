package session

import (
	"context"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/maurice/expkeys"
	"github.com/maurice/expkeys/internal/ctxlog"
)

// DefaultWorkers bounds ParseAll when no worker count is given.
const DefaultWorkers = 4

// Result is the outcome of parsing one session's keys file. Exactly one of
// Keys and Err is set.
type Result struct {
	Session Session
	Keys    *expkeys.Keys
	Err     error
}

// ParseAll parses the keys file of every session using at most workers
// goroutines. Results are returned in the order of sessions. The returned
// error combines every per-session failure; it is only a context error if
// ctx was cancelled before all sessions were read. The logger is taken from
// ctx.
func ParseAll(ctx context.Context, sessions []Session, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	logger := ctxlog.FromContext(ctx)
	results := make([]Result, len(sessions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, s := range sessions {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := s.KeysPath()
			keys, err := expkeys.ParseFile(path)
			results[i] = Result{Session: s, Keys: keys, Err: err}
			if err != nil {
				logger.Warn("Failed to parse keys file.", "session", s.Name.String(), "path", path, "error", err)
				return nil
			}
			logger.Debug("Parsed keys file.", "session", s.Name.String(), "keys", keys.Len())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var errs error
	for _, r := range results {
		errs = multierr.Append(errs, r.Err)
	}
	return results, errs
}
