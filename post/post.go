// Package post defines the blog post record and the requests that create and
// edit it.
package post // import "github.com/nicolagi/quire/post"

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// TimeLayout is the layout of the createdAt attribute, ISO-8601 in UTC with
// millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Post is a single blog post as persisted in the store document.
type Post struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	ImageURL  *string `json:"imageUrl"`
	Owner     *string `json:"owner"`
	CreatedAt string  `json:"createdAt"`
}

// New builds a post out of a validated create request. The taken function
// reports whether an id is already in use; a new id is drawn until it
// returns false.
func New(req CreateRequest, now time.Time, taken func(id string) bool) Post {
	id := NewID(now)
	for at := now; taken != nil && taken(id); {
		at = at.Add(time.Millisecond)
		id = NewID(at)
	}
	return Post{
		ID:        id,
		Title:     req.Title,
		Content:   req.Content,
		ImageURL:  nonEmpty(req.ImageURL),
		Owner:     nonEmpty(req.Owner),
		CreatedAt: now.UTC().Format(TimeLayout),
	}
}

// NewID returns the Unix milliseconds of now followed by a zero-padded
// three-digit random suffix.
func NewID(now time.Time) string {
	return fmt.Sprintf("%d%03d", now.UnixNano()/int64(time.Millisecond), rand.Intn(1000))
}

// ValidID reports whether s looks like a post id, i.e., a non-empty string of
// decimal digits.
func ValidID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SameID compares ids as strings, tolerating surrounding whitespace and, for
// numeric ids, leading zeros.
func SameID(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == b {
		return true
	}
	if ValidID(a) && ValidID(b) {
		return trimZeros(a) == trimZeros(b)
	}
	return false
}

func trimZeros(s string) string {
	t := strings.TrimLeft(s, "0")
	if t == "" {
		return "0"
	}
	return t
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}

// String implements fmt.Stringer.
func (p Post) String() string {
	return fmt.Sprintf("{id=%s title=%.20q}", p.ID, p.Title)
}
