package exec

import "strings"

// htmlReplacer backs htmlEscape, the default escape function (spec §4.4): the five
// characters HTML needs quoted, in the same order Tera's own escaper
// applies them.
var htmlReplacer = strings.NewReplacer(
	`&`, "&amp;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
	`'`, "&#x27;",
)

func htmlEscape(s string) string {
	return htmlReplacer.Replace(s)
}
