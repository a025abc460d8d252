// Package logging builds the slog logger used by every command and holds the
// attribute helpers that keep credentials out of log output.
//
//	logger.Debug("feed response",
//	    logging.Operation("insert"),
//	    logging.Feed(editURL), // query string, and so the gsessionid, removed
//	    logging.StatusCode(201))
//
// Account addresses are logged as logging.UserHash, tokens through
// SanitizeToken. Passwords and cookies are never logged.
package logging
