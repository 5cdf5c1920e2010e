// Package identity derives stable identifiers for documents and index entries.
package identity

import (
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// namespace scopes every groundwork identifier.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/custodia-labs/groundwork"))

// DocumentID returns the UUIDv5 for a source path. Separators and
// redundant elements are normalised so "a/./b.md" and "a\b.md" agree.
func DocumentID(sourcePath string) string {
	return uuid.NewSHA1(namespace, []byte(normalisePath(sourcePath))).String()
}

// EntryID returns the UUIDv5 for one chunk of a document.
func EntryID(documentID string, ordinal int) string {
	return uuid.NewSHA1(namespace, []byte(documentID+"#"+strconv.Itoa(ordinal))).String()
}

func normalisePath(p string) string {
	return strings.TrimPrefix(path.Clean(strings.ReplaceAll(p, "\\", "/")), "./")
}
