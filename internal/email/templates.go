package email

import (
	"bytes"
	"fmt"
	"html/template"
)

const subjectBookRequestFmt = "New request for %q"

type bookRequestEmailData struct {
	RequesterName string
	BookTitle     string
	Message       string
}

var bookRequestTemplate = template.Must(template.New("book_request").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937; margin: 0; padding: 24px;">
	<div style="max-width: 560px; margin: 0 auto;">
		<h2 style="color: #111827;">Someone wants your book</h2>
		<p><strong>{{.RequesterName}}</strong> sent a request for <strong>{{.BookTitle}}</strong>.</p>
		{{if .Message}}<blockquote style="border-left: 3px solid #d1d5db; margin: 16px 0; padding: 4px 12px; color: #4b5563;">{{.Message}}</blockquote>{{end}}
		<p>Open BookMarket to respond to the request.</p>
	</div>
</body>
</html>`))

func renderBookRequestEmail(data bookRequestEmailData) (string, error) {
	var buf bytes.Buffer
	if err := bookRequestTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render book request email: %w", err)
	}
	return buf.String(), nil
}
