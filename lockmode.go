package neurogc

import "github.com/sasha-s/go-deadlock"

// configureLockDiagnostics wires the deadlock detector's global
// options from cfg. Called once from Init before any guarded lock in
// this package is first touched; segment spinlocks are plain atomics
// and are not affected by this switch.
func configureLockDiagnostics(cfg Config) {
	deadlock.Opts.Disable = !cfg.DeadlockDetection
}
