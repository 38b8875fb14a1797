package wordpress

import (
	"strings"
	"time"
	"unicode"
)

// Filler words that carry no search value in a URL.
var slugStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "with": true,
	"by": true, "from": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "has": true, "have": true, "had": true, "as": true,
	"that": true, "this": true, "these": true, "those": true, "it": true,
	"its": true, "but": true, "if": true, "so": true, "not": true, "no": true,
	"yes": true, "do": true, "does": true, "did": true, "can": true,
	"could": true, "should": true, "would": true, "will": true, "just": true,
	"about": true, "into": true, "over": true, "after": true, "before": true,
	"more": true, "less": true, "up": true, "down": true, "out": true,
	"off": true, "new": true, "news": true, "breaking": true, "update": true,
	"latest": true, "today": true, "now": true, "live": true, "report": true,
	"story": true, "top": true, "big": true, "major": true, "minor": true,
	"first": true, "second": true, "third": true, "one": true, "two": true,
	"three": true, "four": true, "five": true, "six": true, "seven": true,
	"eight": true, "nine": true, "ten": true,
}

// Slug builds a short ASCII slug from the English translation of a
// headline. When translation failed, english still holds the Hindi
// original and produces nothing ASCII, so any ASCII tokens of the raw
// title are the fallback, and a dated generic slug the last resort.
func Slug(english, title string) string {
	text := strings.TrimSpace(english)
	if text == "" {
		text = title
	}

	var kept []string
	for _, word := range slugTokens(text) {
		if len(kept) == 6 {
			break
		}
		if slugStopwords[word] || len(word) <= 2 || !asciiOnly(word) {
			continue
		}
		kept = append(kept, word)
	}

	if len(kept) == 0 {
		for _, word := range slugTokens(title) {
			if len(kept) == 3 {
				break
			}
			if !asciiOnly(word) {
				continue
			}
			kept = append(kept, word)
		}
	}

	if len(kept) == 0 {
		return "news-" + time.Now().Format("20060102")
	}
	return strings.Join(kept, "-")
}

// slugTokens lowercases and splits on whitespace, dropping digits and
// punctuation. Punctuation vanishes without a space so "U.S." becomes
// "us", matching how the site's existing slugs read.
func slugTokens(text string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

func asciiOnly(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
