package envelope

import "strings"

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// Escape makes s safe to embed in HTML markup. It is not idempotent: apply it
// exactly once per value.
func Escape(s string) string {
	return htmlReplacer.Replace(s)
}
