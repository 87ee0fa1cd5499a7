package ip

import (
	"fmt"
	"strings"
)

// Source names the location and process for fetching an IP release.
// A nil *Source means "no automatic fetch".
//
// Rendered as "url" when no protocol is set and "protocol+url" otherwise;
// an optional user tag is appended as "#tag".
type Source struct {
	Protocol string
	URL      string
	Tag      string
}

// ParseSource parses the rendered string form.
func ParseSource(s string) (*Source, error) {
	if s == "" {
		return nil, fmt.Errorf("source cannot be empty")
	}
	src := &Source{}
	if rest, tag, ok := cutLast(s, "#"); ok {
		src.Tag = tag
		s = rest
	}
	// a "+" before the scheme separator selects a protocol ("git+https://...")
	if proto, url, ok := strings.Cut(s, "+"); ok && !strings.Contains(proto, "://") {
		src.Protocol = proto
		src.URL = url
	} else {
		src.URL = s
	}
	if src.URL == "" {
		return nil, fmt.Errorf("source %q has no url", s)
	}
	return src, nil
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

func (s *Source) String() string {
	var b strings.Builder
	if s.Protocol != "" {
		b.WriteString(s.Protocol)
		b.WriteString("+")
	}
	b.WriteString(s.URL)
	if s.Tag != "" {
		b.WriteString("#")
		b.WriteString(s.Tag)
	}
	return b.String()
}

// Equals compares all three fields.
func (s *Source) Equals(other *Source) bool {
	if s == nil || other == nil {
		return s == other
	}
	return *s == *other
}
