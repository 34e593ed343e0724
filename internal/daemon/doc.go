// Package daemon runs sync passes on a fixed interval as a long-lived
// background process.
//
// # Lifecycle
//
// The loop is an explicit state machine:
//
//	idle -> running -> success_wait | retry_wait -> running -> ... -> stopping -> terminated
//
// A pass whose result is fatal (the listing or the existence check failed)
// is retried after a short delay, up to a fixed number of consecutive
// retries. Past that budget the loop falls back to the normal interval and
// sends a desktop notification; the counter resets on the next success.
// Per-recording failures never trigger a retry.
//
// Waits are chunked into short steps so shutdown is noticed promptly. A
// pass that has started always runs to completion, even after shutdown is
// requested.
//
// # Persisted state
//
// After every pass the loop writes a status file atomically:
//
//	{
//	  "state": "success_wait",
//	  "lastSyncAt": "2025-03-01T09:00:00Z",
//	  "nextSyncAt": "2025-03-01T09:15:00Z",
//	  "lastResult": {"created": 2, "skippedDuplicate": 5, "pending": 1, "failed": 0},
//	  "consecutiveFailures": 0
//	}
//
// A PID file guards against a second instance running against the same
// configuration.
//
// Example:
//
//	guard, err := daemon.AcquirePID(config.PIDPath(), daemon.RoleDaemon)
//	if err != nil {
//	    return err // daemon.ErrAlreadyRunning when another instance is alive
//	}
//	defer guard.Release()
//
//	d, err := daemon.New(func(ctx context.Context) *sync.Result {
//	    return engine.RunPass(ctx, sync.Options{})
//	})
//	if err != nil {
//	    return err
//	}
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	return d.Run(ctx)
package daemon
