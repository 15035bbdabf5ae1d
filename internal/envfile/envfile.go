// Package envfile reads and rewrites dotenv-style files. Comments, blank
// lines, and declaration order survive a rewrite; only lines whose value
// actually changed are re-rendered. Saves go through a temp file and rename
// so readers never observe a partial file.
package envfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File is an in-memory view of one env file.
type File struct {
	path  string
	lines []*line
}

// line is one physical line. key is empty for comments, blanks, and anything
// else that is not an assignment; those render verbatim from raw.
type line struct {
	raw    string
	key    string
	value  string
	export bool
	quote  byte   // 0 for unquoted
	suffix string // trailing text after the value, e.g. an inline comment
	dirty  bool
}

// Load reads the env file at path. A missing file yields an empty File bound
// to the same path, so the first Save creates it.
func Load(path string) (*File, error) {
	f := &File{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	f.parse(data)
	return f, nil
}

// Path returns the file path this File reads from and writes to.
func (f *File) Path() string { return f.path }

// BackupPath returns the sibling path that receives the pre-save content.
func (f *File) BackupPath() string { return f.path + ".backup" }

func (f *File) parse(data []byte) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return
	}
	for _, raw := range strings.Split(text, "\n") {
		f.lines = append(f.lines, parseLine(raw))
	}
}

func parseLine(raw string) *line {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return &line{raw: raw}
	}

	rest := trimmed
	export := false
	if after, ok := strings.CutPrefix(rest, "export"); ok && len(after) > 0 && (after[0] == ' ' || after[0] == '\t') {
		export = true
		rest = strings.TrimLeft(after, " \t")
	}

	key, val, ok := strings.Cut(rest, "=")
	key = strings.TrimSpace(key)
	if !ok || !validKey(key) {
		return &line{raw: raw}
	}

	value, quote, suffix := parseValue(val)
	return &line{raw: raw, key: key, value: value, export: export, quote: quote, suffix: suffix}
}

func parseValue(s string) (value string, quote byte, suffix string) {
	s = strings.TrimLeft(s, " \t")
	if len(s) > 0 && (s[0] == '"' || s[0] == '\'') {
		if end := strings.IndexByte(s[1:], s[0]); end >= 0 {
			return s[1 : 1+end], s[0], s[2+end:]
		}
	}
	if i := strings.Index(s, " #"); i >= 0 {
		return strings.TrimRight(s[:i], " \t"), 0, s[i:]
	}
	return strings.TrimRight(s, " \t"), 0, ""
}

func validKey(k string) bool {
	if k == "" {
		return false
	}
	for i, r := range k {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Get returns the value of key. With duplicate declarations the last wins.
func (f *File) Get(key string) (string, bool) {
	for i := len(f.lines) - 1; i >= 0; i-- {
		if f.lines[i].key == key {
			return f.lines[i].value, true
		}
	}
	return "", false
}

// Values returns all assignments as a map, last declaration winning.
func (f *File) Values() map[string]string {
	vals := make(map[string]string)
	for _, l := range f.lines {
		if l.key != "" {
			vals[l.key] = l.value
		}
	}
	return vals
}

// Set updates key in place, preserving its position, quoting style, and any
// inline comment. Unknown keys are appended at the end of the file.
func (f *File) Set(key, value string) {
	for i := len(f.lines) - 1; i >= 0; i-- {
		l := f.lines[i]
		if l.key != key {
			continue
		}
		if l.value != value {
			l.value = value
			l.dirty = true
		}
		return
	}
	f.lines = append(f.lines, &line{key: key, value: value, dirty: true})
}

// Merge applies every update via Set. New keys are appended in sorted order
// so repeated merges produce identical files.
func (f *File) Merge(updates map[string]string) {
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f.Set(k, updates[k])
	}
}

// Render returns the file content as it would be written.
func (f *File) Render() []byte {
	if len(f.lines) == 0 {
		return nil
	}
	var b strings.Builder
	for _, l := range f.lines {
		b.WriteString(l.render())
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func (l *line) render() string {
	if l.key == "" || (!l.dirty && l.raw != "") {
		return l.raw
	}
	var b strings.Builder
	if l.export {
		b.WriteString("export ")
	}
	b.WriteString(l.key)
	b.WriteByte('=')
	q := l.quote
	if q == 0 && strings.ContainsAny(l.value, " \t#") {
		q = '"'
	}
	if q != 0 {
		b.WriteByte(q)
		b.WriteString(l.value)
		b.WriteByte(q)
	} else {
		b.WriteString(l.value)
	}
	b.WriteString(l.suffix)
	return b.String()
}

// Save writes the file if its content changed. When a previous version
// exists it is copied to BackupPath first, so the backup always holds the
// immediately-prior content. The write lands in a temp file in the same
// directory and is renamed over the target. Returns whether a write happened.
func (f *File) Save() (bool, error) {
	data := f.Render()

	prev, err := os.ReadFile(f.path)
	exists := err == nil
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	if exists && bytes.Equal(prev, data) {
		return false, nil
	}

	if exists {
		if err := os.WriteFile(f.BackupPath(), prev, 0o600); err != nil {
			return false, fmt.Errorf("failed to write backup %s: %w", f.BackupPath(), err)
		}
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return false, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return false, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return false, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return false, fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return true, nil
}
