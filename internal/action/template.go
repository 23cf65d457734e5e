package action

import (
	"fmt"
	"io"

	"github.com/valyala/fasttemplate"
)

// Context is the per-turn input to command actions.
type Context struct {
	Text      string
	Clipboard string
	// ClipboardMissing is set when the clipboard could not be read at all,
	// as opposed to being readable but empty.
	ClipboardMissing bool
}

// Render substitutes {text} and {clipboard} in tmpl. Any other placeholder
// is an error naming the missing key.
func Render(tmpl string, ctx Context) (string, error) {
	t, err := fasttemplate.NewTemplate(tmpl, "{", "}")
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	return t.ExecuteFuncStringWithErr(func(w io.Writer, tag string) (int, error) {
		switch tag {
		case "text":
			return io.WriteString(w, ctx.Text)
		case "clipboard":
			return io.WriteString(w, ctx.Clipboard)
		default:
			return 0, fmt.Errorf("missing key: '%s'", tag)
		}
	})
}
