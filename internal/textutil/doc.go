// Package textutil provides text normalization helpers for archive entry names
// and download filenames.
//
// SanitizeSegment is the single source of truth for turning catalog display
// values (artists, titles, group keys) into path segments that cannot escape
// their folder or corrupt an archive directory.
package textutil
