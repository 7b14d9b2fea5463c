package parser

import (
	"errors"
	"strings"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/models"
)

// ErrEmptyDocument is returned when the document has no content at all.
var ErrEmptyDocument = errors.New("history document is empty")

// Result holds the entries of one document and how the pass went.
type Result struct {
	Entries   []models.VideoEntry
	Report    models.ImportReport
	Fragments []*FragmentError
}

// Parse extracts every watch event from a watch-history document.
// Entries keep document order.
func Parse(content string, opts Options) (*Result, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyDocument
	}

	norm := NewNormalizer(opts)
	sc := NewScanner(content)
	res := &Result{}

	for sc.Next() {
		entry, outcome := norm.Normalize(sc.Record())
		switch outcome {
		case OutcomeAccepted:
			res.Entries = append(res.Entries, entry)
			res.Report.Accepted++
		case OutcomeNoise:
			res.Report.Noise++
		case OutcomeInvalidDate:
			res.Report.InvalidDates++
		}
	}

	res.Fragments = sc.Failures()
	res.Report.Matched = sc.Matched()
	res.Report.Failures = len(res.Fragments)

	return res, nil
}
