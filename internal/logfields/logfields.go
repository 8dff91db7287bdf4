package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyDocument   = "document"
	KeyBlockIndex = "block_index"
	KeyBlockName  = "block_name"
	KeyLanguage   = "language"
	KeyMode       = "mode"
	KeyWrapper    = "wrapper"
	KeyCachePath  = "cache_path"
	KeyPlugin     = "plugin"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Document(p string) slog.Attr     { return slog.String(KeyDocument, p) }
func BlockIndex(i int) slog.Attr      { return slog.Int(KeyBlockIndex, i) }
func BlockName(n string) slog.Attr    { return slog.String(KeyBlockName, n) }
func Language(l string) slog.Attr     { return slog.String(KeyLanguage, l) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func Wrapper(w string) slog.Attr      { return slog.String(KeyWrapper, w) }
func CachePath(p string) slog.Attr    { return slog.String(KeyCachePath, p) }
func Plugin(name string) slog.Attr    { return slog.String(KeyPlugin, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
