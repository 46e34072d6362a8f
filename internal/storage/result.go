package storage

import (
	"context"
	"log/slog"
)

// Result is the outcome of a best-effort write. Callers may inspect it but are
// never required to act on it: a failed write is simply lost until the next one.
type Result struct {
	Op  string
	Key string
	Err error
}

// OK reports whether the write succeeded
func (r Result) OK() bool {
	return r.Err == nil
}

// SafeSet writes a value and logs instead of failing
func SafeSet(ctx context.Context, store Store, logger *slog.Logger, key, value string, shared bool) Result {
	res := Result{Op: "set", Key: key, Err: store.Set(ctx, key, value, shared)}
	logFailure(ctx, logger, res)
	return res
}

// SafeDelete deletes a key and logs instead of failing
func SafeDelete(ctx context.Context, store Store, logger *slog.Logger, key string, shared bool) Result {
	res := Result{Op: "delete", Key: key, Err: store.Delete(ctx, key, shared)}
	logFailure(ctx, logger, res)
	return res
}

func logFailure(ctx context.Context, logger *slog.Logger, res Result) {
	if res.Err == nil || logger == nil {
		return
	}
	logger.WarnContext(ctx, "Best-effort storage write failed",
		"op", res.Op,
		"key", res.Key,
		"error", res.Err)
}
