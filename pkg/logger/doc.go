// Package logger provides the structured logging interface used across
// instagramdl.
//
// It wraps zerolog. Without a log file the output is a colored console
// stream on stderr; with a file, JSON lines go to the file and the console
// stream is kept alongside.
//
//	err := logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("component", "scheduler")
//	log.InfoWithFields("Post retrieved", map[string]interface{}{
//	    "shortcode": post.Shortcode,
//	    "media":     len(post.MediaURLs()),
//	})
//
// Components take a Logger argument and fall back to the global logger when
// it is nil. Tests use NewTestLogger to capture and assert on messages.
package logger
