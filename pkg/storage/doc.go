// Package storage places downloaded media on disk.
//
// Every file gets a random UUID name in the configured directory and is
// opened with O_CREATE|O_EXCL, so concurrent downloads and earlier runs can
// never collide or overwrite each other. A failed copy removes its partial
// file.
package storage
