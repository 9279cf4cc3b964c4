// Package render turns message content into HTML for display.
package render

import (
	"bytes"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/comigor/healthassist-go/internal/logger"
	"github.com/comigor/healthassist-go/internal/models"
)

// md renders GitHub-flavoured markdown; raw HTML in the source is omitted.
var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Markdown converts markdown to HTML.
func Markdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// MessageHTML renders a message the way it is shown in the chat: assistant
// text as markdown, user text as an escaped paragraph.
func MessageHTML(m models.Message) string {
	if m.Role != models.RoleAssistant {
		return "<p>" + html.EscapeString(m.Content) + "</p>"
	}
	out, err := Markdown(m.Content)
	if err != nil {
		logger.L.Error("failed to convert markdown", "message_id", m.ID, "error", err)
		return "<p>" + html.EscapeString(m.Content) + "</p>"
	}
	return out
}
