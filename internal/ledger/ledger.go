// Package ledger keeps the persisted record of trends that were already
// turned into published posts. Every pipeline consults it before
// publishing and records into it after a successful publish, so the same
// story is never posted twice no matter which schedule discovers it.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Entry is one processed trend.
type Entry struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category,omitempty"`
	Schedule    string    `json:"schedule,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
	PostID      int       `json:"post_id,omitempty"`
}

// Ledger is the dedup store. Contains must be a pure lookup; Record
// upserts, so recording an identifier twice is safe and changes nothing
// but the timestamp.
type Ledger interface {
	Contains(id string) bool
	Record(e Entry) error
	Size() int
	Persist() error
	Close() error
}

// CorruptError reports a persisted ledger that cannot be parsed. The
// caller is expected to abort and leave the file in place for
// inspection; starting over from an empty ledger would re-publish
// everything the file used to remember.
type CorruptError struct {
	Path string
	Line int
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("ledger %s is corrupt at line %d: %v", e.Path, e.Line, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Filler words that carry no identity: a headline saying "Breaking:" or
// "ताजा खबर:" is the same story without them.
var stopwords = map[string]bool{
	"news":     true,
	"latest":   true,
	"breaking": true,
	"update":   true,
	"report":   true,
	"story":    true,
	"समाचार":   true,
	"ताजा":     true,
	"ताज़ा":     true,
	"खबर":      true,
	"अपडेट":    true,
	"रिपोर्ट":   true,
}

// Normalize reduces a title to the canonical form used for dedup: lower
// case, punctuation to spaces, filler words and tokens of one or two
// runes dropped, single spaces between what remains. Marks are kept as
// word runes so Devanagari matras survive.
func Normalize(title string) string {
	lower := strings.ToLower(strings.TrimSpace(title))

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	words := strings.Fields(b.String())

	var kept []string
	for _, w := range words {
		if stopwords[w] {
			continue
		}
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		kept = append(kept, w)
	}

	// A title made entirely of filler still needs a stable identity
	if len(kept) == 0 {
		return strings.Join(words, " ")
	}

	return strings.Join(kept, " ")
}

// Key derives the dedup identifier for a title.
func Key(title string) string {
	h := sha256.New()
	h.Write([]byte(Normalize(title)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// NewEntry builds an Entry for a freshly published trend.
func NewEntry(title, category, schedule string, postID int) Entry {
	return Entry{
		ID:          Key(title),
		Title:       title,
		Category:    category,
		Schedule:    schedule,
		ProcessedAt: time.Now().UTC(),
		PostID:      postID,
	}
}
