package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyStage      = "stage"
	KeyRepo       = "repository"
	KeyBranch     = "branch"
	KeyCommit     = "commit"
	KeyPath       = "path"
	KeyURL        = "url"
	KeyRunID      = "run_id"
	KeyMode       = "mode"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Repository(r string) slog.Attr   { return slog.String(KeyRepo, r) }
func Branch(b string) slog.Attr       { return slog.String(KeyBranch, b) }
func Commit(c string) slog.Attr       { return slog.String(KeyCommit, c) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
