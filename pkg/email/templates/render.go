package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Render renders a templ component to a string.
func Render(ctx context.Context, tpl templ.Component) (string, error) {
	var sb strings.Builder
	if err := tpl.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Layout wraps an already rendered HTML body in the notification email shell.
// The title is escaped; the body is written as is. A non-empty link adds a
// call to action button.
func Layout(title, bodyHTML, link, linkLabel string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html><head><meta charset="utf-8"><title>%s</title></head>`+
			`<body style="font-family:Helvetica,Arial,sans-serif;color:#333"><div style="max-width:600px;margin:0 auto">`,
			templ.EscapeString(title)); err != nil {
			return err
		}
		if err := templ.Raw(bodyHTML).Render(ctx, w); err != nil {
			return err
		}
		if link != "" {
			if _, err := fmt.Fprintf(w, `<p><a href="%s" style="display:inline-block;padding:10px 16px;background:#0075b4;color:#fff;text-decoration:none">%s</a></p>`,
				templ.EscapeString(link), templ.EscapeString(linkLabel)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div></body></html>`)
		return err
	})
}
