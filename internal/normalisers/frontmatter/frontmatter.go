// Package frontmatter splits a leading YAML block off a text document.
package frontmatter

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Matter is the decoded front matter of a document.
type Matter struct {
	Title    string         `yaml:"title"`
	Module   string         `yaml:"module"`
	Sections []string       `yaml:"sections"`
	Extra    map[string]any `yaml:",inline"`
}

// Empty reports whether no front matter keys were set.
func (m *Matter) Empty() bool {
	return m.Title == "" && m.Module == "" && len(m.Sections) == 0 && len(m.Extra) == 0
}

// Split parses front matter delimited by "---" lines at the very start of
// content and returns it with the remaining body. Content without a
// front matter block is returned unchanged with an empty Matter.
func Split(content []byte) (*Matter, []byte, error) {
	m := &Matter{}

	content = bytes.TrimPrefix(content, []byte("\ufeff"))
	first, rest, ok := cutLine(content)
	if !ok || string(bytes.TrimRight(first, " \t\r")) != delimiter {
		return m, content, nil
	}

	var block []byte
	for len(rest) > 0 {
		line, next, _ := cutLine(rest)
		if trimmed := string(bytes.TrimRight(line, " \t\r")); trimmed == delimiter || trimmed == "..." {
			if err := yaml.Unmarshal(block, m); err != nil {
				return nil, nil, fmt.Errorf("front matter: %w", err)
			}
			return m, next, nil
		}
		block = append(block, bytes.TrimRight(line, "\r")...)
		block = append(block, '\n')
		rest = next
	}

	// An opening delimiter with no closing one is ordinary content.
	return m, content, nil
}

// cutLine returns the first line of b without its newline, the rest, and
// whether a newline was found.
func cutLine(b []byte) (line, rest []byte, found bool) {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return b[:i], b[i+1:], true
	}
	return b, nil, false
}

// Hierarchy returns the section hierarchy for a document at sourcePath.
//
// Explicit sections win, with module prepended unless it is already
// first. Otherwise the directories of sourcePath are used, and module
// replaces the top-level directory.
func (m *Matter) Hierarchy(sourcePath string) []string {
	if len(m.Sections) > 0 {
		out := make([]string, 0, len(m.Sections)+1)
		if m.Module != "" && m.Sections[0] != m.Module {
			out = append(out, m.Module)
		}
		return append(out, m.Sections...)
	}

	dirs := directories(sourcePath)
	if m.Module == "" {
		return dirs
	}
	if len(dirs) == 0 {
		return []string{m.Module}
	}
	dirs[0] = m.Module
	return dirs
}

// Metadata returns a copy of the keys other than title, module and sections.
func (m *Matter) Metadata() map[string]any {
	out := make(map[string]any, len(m.Extra))
	for k, v := range m.Extra {
		out[k] = v
	}
	return out
}

func directories(sourcePath string) []string {
	dir := path.Dir(strings.ReplaceAll(sourcePath, "\\", "/"))
	if dir == "." || dir == "/" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(strings.Trim(dir, "/"), "/") {
		if part != "" && part != "." {
			out = append(out, part)
		}
	}
	return out
}
