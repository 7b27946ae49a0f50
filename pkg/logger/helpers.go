package logger

import "time"

// LogRequest logs one upstream HTTP exchange at a level matching its status.
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration":    duration,
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.DebugWithFields("HTTP request completed", fields)
	}
}

// LogMedia logs the outcome of one media download.
func LogMedia(l Logger, url, path string, err error) {
	entry := l.WithFields(map[string]interface{}{
		"media_url": url,
		"path":      path,
	})
	if err != nil {
		entry.WithError(err).Warn("Media download failed")
		return
	}
	entry.Debug("Media saved")
}

// LogPacing logs a scheduler pacing wait.
func LogPacing(l Logger, url string, wait time.Duration) {
	if wait <= 0 {
		return
	}
	l.DebugWithFields("Waiting out pacing interval", map[string]interface{}{
		"url":  url,
		"wait": wait,
	})
}

// NewNopLogger creates a no-operation logger
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (n nopLogger) Debug(string)                                          {}
func (n nopLogger) Info(string)                                           {}
func (n nopLogger) Warn(string)                                           {}
func (n nopLogger) Error(string)                                          {}
func (n nopLogger) WithField(string, interface{}) Logger                  { return n }
func (n nopLogger) WithFields(map[string]interface{}) Logger              { return n }
func (n nopLogger) WithError(error) Logger                                { return n }
func (n nopLogger) DebugWithFields(string, map[string]interface{})       {}
func (n nopLogger) InfoWithFields(string, map[string]interface{})        {}
func (n nopLogger) WarnWithFields(string, map[string]interface{})        {}
func (n nopLogger) ErrorWithFields(string, map[string]interface{})       {}
