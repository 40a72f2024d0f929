package archive

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"poolpack/internal/catalog"
	"poolpack/internal/textutil"
)

const (
	placeholderExt  = "txt"
	truncatedSuffix = ".truncated"
	fallbackGroup   = "MISC"
	unresolvedGroup = "MISSING"
	maxExtLen       = 8
)

// entryStem returns the archive path of a resource without extension:
// GROUP/Artist - Title.
func entryStem(r catalog.Resource) string {
	group := strings.ToUpper(textutil.SanitizeSegment(r.GroupKey))
	if group == "" {
		group = fallbackGroup
	}
	title := textutil.SanitizeSegment(r.Title)
	if title == "" {
		title = textutil.SanitizeFileName(r.ID, "untitled")
	}
	base := title
	if artist := textutil.SanitizeSegment(r.Artist); artist != "" {
		base = artist + " - " + title
	}
	return group + "/" + base
}

// unresolvedStem names the placeholder for an id the catalog does not know.
func unresolvedStem(id string) string {
	return unresolvedGroup + "/" + textutil.SanitizeFileName(id, "unknown")
}

// extensionFor derives the entry extension from the resource URL path.
func extensionFor(rawURL, fallback string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "data" {
		return fallback
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
	ext = textutil.SanitizeSegment(ext)
	if ext == "" || len(ext) > maxExtLen || strings.ContainsAny(ext, " .") {
		return fallback
	}
	return ext
}

// namer hands out unique entry names within one archive. Collisions receive
// " (2)", " (3)" suffixes before the extension.
type namer struct {
	used map[string]int
}

func newNamer() *namer {
	return &namer{used: make(map[string]int)}
}

func (n *namer) name(stem, ext string) string {
	candidate := stem + "." + ext
	key := strings.ToLower(candidate)
	count, taken := n.used[key]
	if !taken {
		n.used[key] = 1
		return candidate
	}
	for {
		count++
		candidate = fmt.Sprintf("%s (%d).%s", stem, count, ext)
		alt := strings.ToLower(candidate)
		if _, exists := n.used[alt]; !exists {
			n.used[key] = count
			n.used[alt] = 1
			return candidate
		}
	}
}

// downloadName returns the display filename for the finished archive.
func downloadName(requested, fallback string) string {
	requested = strings.TrimSpace(requested)
	if strings.HasSuffix(strings.ToLower(requested), ".zip") {
		requested = requested[:len(requested)-len(".zip")]
	}
	return textutil.SanitizeFileName(requested, fallback) + ".zip"
}
