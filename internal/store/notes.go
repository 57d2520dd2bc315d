package store

import (
	errs "errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const noteExt = ".md"

// Note is one Markdown file of the mission notes directory. Slug is the
// URL-component-encoded name.
type Note struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Notes serves read-only Markdown files from one directory.
type Notes struct {
	dir string
}

// ResolveNotesDir returns configured when set, otherwise the first candidate that exists,
// otherwise the first candidate. The result is absolute.
func ResolveNotesDir(configured string, candidates []string) string {
	pick := configured
	if pick == "" {
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				pick = c
				break
			}
		}
	}
	if pick == "" && len(candidates) > 0 {
		pick = candidates[0]
	}
	if abs, err := filepath.Abs(pick); err == nil {
		return abs
	}
	return pick
}

func NewNotes(dir string) *Notes { return &Notes{dir: dir} }

func (n *Notes) Dir() string { return n.dir }

// List returns the notes in directory order. A missing directory has no notes.
func (n *Notes) List() ([]Note, error) {
	entries, err := os.ReadDir(n.dir)
	if errs.Is(err, fs.ErrNotExist) {
		return []Note{}, nil
	}
	if err != nil {
		return nil, wrap(err, "list mission notes")
	}
	notes := []Note{}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), noteExt) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), noteExt)
		notes = append(notes, Note{Name: name, Slug: EncodeComponent(name)})
	}
	return notes, nil
}

// Read returns the note a slug names. Slugs that decode to a name with a path
// separator or "..", or that fail to decode, are ErrInvalidName.
func (n *Notes) Read(slug string) ([]byte, error) {
	if slug == "" {
		return nil, ErrInvalidName
	}
	name, err := url.PathUnescape(slug)
	if err != nil {
		return nil, ErrInvalidName
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return nil, ErrInvalidName
	}
	root, err := filepath.Abs(n.dir)
	if err != nil {
		return nil, wrap(err, "resolve notes dir")
	}
	path := filepath.Join(root, name+noteExt)
	if rel, err := filepath.Rel(root, path); err != nil || strings.HasPrefix(rel, "..") {
		return nil, ErrForbidden
	}
	b, err := os.ReadFile(path)
	if errs.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, wrap(err, "read mission note")
}

// EncodeComponent escapes s like a URI component: everything but ASCII letters, digits
// and -_.!~*'() is percent-encoded as UTF-8.
func EncodeComponent(s string) string {
	var b strings.Builder
	const hex = "0123456789ABCDEF"
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
