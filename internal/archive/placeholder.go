package archive

import (
	"fmt"
	"strings"

	"poolpack/internal/catalog"
)

// placeholderBody renders the text written in place of a resource that could
// not be fetched.
func placeholderBody(id string, r catalog.Resource, reason string) []byte {
	var b strings.Builder
	b.WriteString("This file replaces a resource that could not be included in the archive.\n\n")
	fmt.Fprintf(&b, "id: %s\n", id)
	fmt.Fprintf(&b, "title: %s\n", r.Title)
	fmt.Fprintf(&b, "artist: %s\n", r.Artist)
	fmt.Fprintf(&b, "reason: %s\n", reason)
	return []byte(b.String())
}
