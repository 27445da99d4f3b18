// Package log builds the slog loggers used by biosnap commands.
//
// Every logger wraps its text or JSON handler in a SecureHandler, which masks
// what a portal session and a lab report can leak into a log line:
//   - portal logins and session cookies, by key (email, password, cookie, token)
//     and by value (bearer headers, JWTs, multi-pair cookie strings)
//   - patient identity keys (patient, dob, birth, mrn)
//   - e-mail addresses anywhere in a message, string or error
//
// model.Credential and model.SessionToken render through their own LogValue,
// so a token logs only its cookie count. Masking applies in verbose mode too.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("login submitted", "email", email, "portal", "thorne")
package log
