// Package report renders a ranked, delta-annotated leaderboard as a
// markdown table suitable for pasting into a forum post.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/podium/internal/domain/rank"
)

// Timestamp layout mirrors the classic C locale date format the report
// has always carried.
const timestampLayout = "Mon Jan _2 15:04:05 2006"

// Renderer produces the change report. Output is deterministic for a
// fixed entry list and timestamp.
type Renderer struct {
	prefix  string
	unknown string
}

// Option applies a configuration option to the Renderer.
type Option func(*Renderer)

// WithIdentityPrefix sets the prefix prepended to resolved identities,
// e.g. "/u/" for reddit handles.
func WithIdentityPrefix(prefix string) Option {
	return func(r *Renderer) {
		r.prefix = prefix
	}
}

// WithUnknownMarker sets the marker appended to rows whose identity
// could not be resolved.
func WithUnknownMarker(marker string) Option {
	return func(r *Renderer) {
		if marker != "" {
			r.unknown = marker
		}
	}
}

// New constructs a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		prefix:  "/u/",
		unknown: "(unknown)",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render produces the report. Rank deltas use an explicit sign, with
// "+0" for an unchanged position. Rank 1 is the first entry.
func (r *Renderer) Render(entries []rank.Entry, generatedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Last Updated: %s*\n", generatedAt.Format(timestampLayout))
	b.WriteString("**Change**|**Rank**|**Player**|**Score**\n")
	b.WriteString(":---------|:-------|----------|---------\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "%+d|%d|%s|%d\n", e.Change, i+1, r.display(e), e.Score)
	}
	return b.String()
}

// display formats the identity cell. Unverified rows show the bare
// bracket handle with the unknown marker instead of a prefixed identity.
func (r *Renderer) display(e rank.Entry) string {
	if e.Unverified {
		return e.Identity + " " + r.unknown
	}
	return r.prefix + e.Identity
}
