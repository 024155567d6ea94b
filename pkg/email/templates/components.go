package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const (
	bodyStyle      = "margin:0;padding:24px;background:#f4f5f7;font-family:Helvetica,Arial,sans-serif;color:#1f2933;"
	cardStyle      = "max-width:560px;margin:0 auto;background:#ffffff;border-radius:8px;padding:32px;"
	headingStyle   = "margin:0 0 16px;font-size:20px;"
	textStyle      = "margin:0 0 12px;font-size:15px;line-height:1.5;"
	warningStyle   = "margin:0 0 12px;font-size:15px;line-height:1.5;color:#b42318;"
	secondaryStyle = "margin:24px 0 0;font-size:13px;line-height:1.4;color:#6b7280;"
)

// Layout wraps children in a minimal, inline-styled email document.
func Layout(title string, children ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html><head><meta charset="utf-8"><title>`+
			templ.EscapeString(title)+`</title></head><body style="`+bodyStyle+`"><div style="`+cardStyle+`">`); err != nil {
			return err
		}
		if err := Heading(title).Render(ctx, w); err != nil {
			return err
		}
		for _, c := range children {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div></body></html>`)
		return err
	})
}

func Heading(text string) templ.Component {
	return element("h1", headingStyle, text)
}

func Text(text string) templ.Component {
	return element("p", textStyle, text)
}

func TextWarning(text string) templ.Component {
	return element("p", warningStyle, text)
}

func TextSecondary(text string) templ.Component {
	return element("p", secondaryStyle, text)
}

func element(tag, style, text string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<"+tag+` style="`+style+`">`+templ.EscapeString(text)+"</"+tag+">")
		return err
	})
}
