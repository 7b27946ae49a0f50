// Package ui renders command output: styled messages, post summaries,
// batch progress and desktop notifications.
package ui
