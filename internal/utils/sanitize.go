// internal/utils/sanitize.go
package utils

import (
	"strings"

	"golang.org/x/net/html"
)

// StripTags drops markup from user input and trims the remaining text.
// Content of script and style elements is dropped with the tags.
func StripTags(input string) string {
	if !strings.ContainsAny(input, "<>&") {
		return strings.TrimSpace(input)
	}

	var b strings.Builder
	skipping := false
	tokenizer := html.NewTokenizer(strings.NewReader(input))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skipping = true
			}
		case html.EndTagToken:
			skipping = false
		case html.TextToken:
			if !skipping {
				b.Write(tokenizer.Text())
			}
		}
	}
}
