package parser

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// recordPattern matches one watch record in a Takeout watch-history.html export:
// the "Watched" marker, the video anchor, the channel anchor and the text after <br>.
// The lazy spans never cross a newline. Exports put a no-break space after
// "Watched", so the gap accepts Unicode spaces as well as ASCII ones.
var recordPattern = regexp.MustCompile(
	`Watched[\s\x{00a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}]+<a[^>]+href="([^"]+)"[^>]*>([^<]+)</a>.*?<a[^>]+href="([^"]+)"[^>]*>([^<]+)</a>.*?<br>([^<]+)`,
)

// RawRecord is one record-shaped fragment before decoding and validation.
type RawRecord struct {
	VideoURL   string
	RawTitle   string
	ChannelURL string
	RawChannel string
	RawDate    string
	Offset     int
}

// FragmentError describes a fragment that matched the record template but
// could not be turned into a RawRecord.
type FragmentError struct {
	Offset int
	Reason string
}

func (e *FragmentError) Error() string {
	return fmt.Sprintf("fragment at offset %d: %s", e.Offset, e.Reason)
}

// Scanner walks a document once and yields RawRecords in document order.
// It cannot be restarted; create a new Scanner to scan again.
type Scanner struct {
	src      string
	pos      int
	rec      RawRecord
	matched  int
	failures []*FragmentError
}

// NewScanner returns a Scanner over content.
func NewScanner(content string) *Scanner {
	return &Scanner{src: content}
}

// Next advances to the next well-formed record. It returns false once the
// document is exhausted. Malformed fragments are recorded and skipped.
func (s *Scanner) Next() bool {
	for s.pos < len(s.src) {
		loc := recordPattern.FindStringSubmatchIndex(s.src[s.pos:])
		if loc == nil {
			s.pos = len(s.src)
			return false
		}

		start := s.pos + loc[0]
		end := s.pos + loc[1]
		if end == start {
			end++
		}
		s.matched++

		rec, err := s.record(start, loc)
		s.pos = end
		if err != nil {
			s.failures = append(s.failures, err)
			continue
		}

		s.rec = rec
		return true
	}
	return false
}

func (s *Scanner) record(start int, loc []int) (RawRecord, *FragmentError) {
	groups := make([]string, 5)
	for i := range groups {
		lo, hi := loc[2*(i+1)], loc[2*(i+1)+1]
		if lo < 0 || hi < 0 {
			return RawRecord{}, &FragmentError{Offset: start, Reason: fmt.Sprintf("capture group %d missing", i+1)}
		}
		g := s.src[s.pos+lo : s.pos+hi]
		if !utf8.ValidString(g) {
			return RawRecord{}, &FragmentError{Offset: start, Reason: fmt.Sprintf("capture group %d is not valid UTF-8", i+1)}
		}
		groups[i] = g
	}

	return RawRecord{
		VideoURL:   groups[0],
		RawTitle:   groups[1],
		ChannelURL: groups[2],
		RawChannel: groups[3],
		RawDate:    groups[4],
		Offset:     start,
	}, nil
}

// Record returns the record produced by the last successful call to Next.
func (s *Scanner) Record() RawRecord {
	return s.rec
}

// Matched returns how many fragments matched the template so far,
// including the ones that failed.
func (s *Scanner) Matched() int {
	return s.matched
}

// Failures returns the fragments that could not be extracted.
func (s *Scanner) Failures() []*FragmentError {
	return s.failures
}
