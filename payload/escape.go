package payload

import (
	"net/url"
	"strings"
)

// componentUnescaper restores the characters encodeURIComponent leaves
// alone but url.QueryEscape encodes, and turns '+' back into %20.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EscapeComponent percent-encodes s the way ECMAScript's encodeURIComponent
// does, which is what mailto: and smsto: readers decode.
func EscapeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
