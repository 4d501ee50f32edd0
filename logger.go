package assuan

import "log/slog"

// NopLogger returns a logger that discards all output. Sessions use it
// when no logger is configured.
func NopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// loggerOrNop returns log, or a NopLogger if log is nil.
func loggerOrNop(log *slog.Logger) *slog.Logger {
	if log == nil {
		return NopLogger()
	}

	return log
}
