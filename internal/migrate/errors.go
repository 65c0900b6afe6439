// Package migrate holds error kinds shared across every migration engine.
// Each kind is a thin marker type wrapping an underlying error so callers
// can classify failures (§7) with errors.As without inspecting strings.
package migrate

import "fmt"

// ConfigError wraps a malformed plan, missing placeholder, or unknown mode.
// Reported at load time before any I/O.
type ConfigError struct{ Err error }

func (e *ConfigError) Error() string { return fmt.Sprintf("config error: %v", e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

// ConnectError wraps a failure to establish an initial session. Fatal for
// the affected job; recorded and skipped.
type ConnectError struct{ Err error }

func (e *ConnectError) Error() string { return fmt.Sprintf("connect error: %v", e.Err) }
func (e *ConnectError) Unwrap() error { return e.Err }

// SchemaError wraps missing DDL, unreadable columns, or an unparsable
// location. Fails the single table; the orchestrator continues.
type SchemaError struct{ Err error }

func (e *SchemaError) Error() string { return fmt.Sprintf("schema error: %v", e.Err) }
func (e *SchemaError) Unwrap() error { return e.Err }

// TransientDataError wraps a per-batch or per-object failure that is
// locally retried. Surviving failures are recorded on the result and
// downgrade its status to WARNING.
type TransientDataError struct{ Err error }

func (e *TransientDataError) Error() string { return fmt.Sprintf("transient data error: %v", e.Err) }
func (e *TransientDataError) Unwrap() error { return e.Err }

// VerificationError wraps a post-copy verify mismatch. Reported but does
// not auto-repair.
type VerificationError struct{ Err error }

func (e *VerificationError) Error() string { return fmt.Sprintf("verification error: %v", e.Err) }
func (e *VerificationError) Unwrap() error { return e.Err }

// Cancelled wraps an external-signal cancellation. Current jobs are allowed
// to drain; no new jobs are scheduled.
type Cancelled struct{ Err error }

func (e *Cancelled) Error() string { return fmt.Sprintf("cancelled: %v", e.Err) }
func (e *Cancelled) Unwrap() error { return e.Err }
