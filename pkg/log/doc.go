// Package log is the structured logging facade shared by the server, the
// feed pollers and the CLI.
//
// Loggers carry Fields (see Str, Int, Dur, Err, Category, Component) and
// write through a log/slog handler, so libraries that want a *slog.Logger
// can share the same pipeline via (*BaseLogger).Slog.
//
//	l, err := log.ApplyConfig(&log.Config{Level: "info", Format: "json"})
//	if err != nil {
//	    return err
//	}
//	l = l.With(log.Component("feed"), log.Category("infrastructure"))
//	l.Info("poller started", log.Dur("interval", 2*time.Second))
//
// Config also selects outputs (console, file, null), redacted keys and
// per-message sampling. RedirectStdLog points the standard library logger
// at a Logger for code that still uses it.
package log
