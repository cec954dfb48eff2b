// Package log provides the leveled logging interface shared by the LUCA
// core packages.
//
// Both workflows log node transitions, adapter failures and degraded
// fallbacks through this interface; nothing user-visible ever goes
// through it. DefaultLogger writes to stderr via the standard library,
// GologLogger wraps a kataras/golog logger for deployments that already
// standardize on it, and NoOpLogger silences a component entirely.
//
//	logger := log.NewGologLogger(golog.New())
//	logger.SetLevel(log.LogLevelDebug)
//	log.SetDefaultLogger(logger)
package log
