package format

import (
	"bytes"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var notesMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
)

// Relative renders t as "3 minutes ago". A missing time reads "never".
func Relative(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return humanize.Time(*t)
}

// NotesHTML converts race notes written in markdown to HTML. Raw HTML in the
// notes is not rendered.
func NotesHTML(notes *string) (string, error) {
	if notes == nil || *notes == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := notesMarkdown.Convert([]byte(*notes), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
