package downloader

import (
	"strings"

	"instagramdl/pkg/storage"
)

// extFor guesses the file extension of a media URL. CDN URLs without one
// are images unless they look like video.
func extFor(url string) string {
	fallback := ".jpg"
	if strings.Contains(url, "/v/t16/") || strings.Contains(url, "video") {
		fallback = ".mp4"
	}
	return storage.ExtFromURL(url, fallback)
}
