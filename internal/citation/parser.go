package citation

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/arturoeanton/aio-tracker/internal/domain"
)

// rawDataCDNHost serves the images the SERP provider injects into overview
// markdown. They never appear in genuine AI Overviews.
const rawDataCDNHost = "api.dataforseo.com"

var (
	imageMarkdown  = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]*)\)`)
	citationMarker = regexp.MustCompile(`\[\[(\d+)\]\]\(([^)\s]+)\)`)
)

// SegmentType distinguishes plain text from citation markers.
type SegmentType string

// Segment types.
const (
	SegmentText     SegmentType = "text"
	SegmentCitation SegmentType = "citation"
)

// Segment is one piece of parsed overview markdown.
//
// Text segments carry the literal text in Content. Citation segments carry
// the cited URL, the reference rank in CitationNum and the original marker
// text in Raw. Resolved is false when no reference matched and CitationNum
// fell back to the number printed in the marker, clamped to math.MaxInt when
// it does not fit an int. Raw always keeps the literal marker.
type Segment struct {
	Type        SegmentType `json:"type"`
	Content     string      `json:"content,omitempty"`
	CitationNum int         `json:"citation_num,omitempty"`
	URL         string      `json:"url,omitempty"`
	Raw         string      `json:"raw,omitempty"`
	Resolved    bool        `json:"resolved,omitempty"`
}

// Span returns the original markdown covered by the segment.
func (s Segment) Span() string {
	if s.Type == SegmentCitation {
		return s.Raw
	}
	return s.Content
}

// StripNoise removes image markdown pointing at the provider's raw-data CDN.
func StripNoise(markdown string) string {
	return imageMarkdown.ReplaceAllStringFunc(markdown, func(m string) string {
		sub := imageMarkdown.FindStringSubmatch(m)
		if len(sub) > 1 && strings.Contains(strings.ToLower(sub[1]), rawDataCDNHost) {
			return ""
		}
		return m
	})
}

// Parse splits overview markdown into text and citation segments.
//
// Each [[n]](url) marker becomes a citation whose number is the rank of the
// first reference whose domain matches the URL's domain. The printed n is
// used only when nothing matches, because the provider numbers markers and
// references independently.
func Parse(markdown string, refs []domain.Reference) []Segment {
	clean := StripNoise(markdown)
	matches := citationMarker.FindAllStringSubmatchIndex(clean, -1)

	segments := make([]Segment, 0, 2*len(matches)+1)
	last := 0
	for _, m := range matches {
		if m[0] > last {
			segments = append(segments, Segment{Type: SegmentText, Content: clean[last:m[0]]})
		}

		printed, err := strconv.Atoi(clean[m[2]:m[3]])
		if err != nil {
			// Only out-of-range numbers fail here.
			printed = math.MaxInt
		}
		url := clean[m[4]:m[5]]
		seg := Segment{
			Type:        SegmentCitation,
			CitationNum: printed,
			URL:         url,
			Raw:         clean[m[0]:m[1]],
		}
		if ref, ok := MatchReference(url, refs); ok {
			seg.CitationNum = ref.Rank
			seg.Resolved = true
		}
		segments = append(segments, seg)
		last = m[1]
	}
	if last < len(clean) {
		segments = append(segments, Segment{Type: SegmentText, Content: clean[last:]})
	}
	return segments
}

// MatchReference returns the first reference, in rank order, whose domain
// matches the domain of url. A reference without a usable domain is matched
// by the domain of its own URL.
func MatchReference(url string, refs []domain.Reference) (domain.Reference, bool) {
	target := NormalizeDomain(url)
	if target == "" {
		return domain.Reference{}, false
	}
	for _, ref := range refs {
		if DomainsMatch(target, ref.Domain) || DomainsMatch(target, ref.URL) {
			return ref, true
		}
	}
	return domain.Reference{}, false
}
