package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
	"github.com/gavinmorrow/hunter-extension-sub000/pkg/hostdate"
)

// details is the parsed pipe-delimited detail line of a scraped row.
type details struct {
	isTask        bool
	due           time.Time
	assigned      time.Time
	maxPoints     *float64
	className     string
	kind          string
	isExtraCredit bool
}

var (
	labelledDate = regexp.MustCompile(`^(?:[A-Za-z ]+:\s*)?(\d{1,2}/\d{1,2}/\d{4} \d{1,2}:\d{2} [AaPp][Mm])$`)
	pointsText   = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*(?:pts?|points?)$`)
)

// parseDetails splits a detail line. Tasks have exactly four segments
// (due | assigned | class | type). Assignments have five or six:
// due | assigned | [points] | class | type, plus an optional extra-credit marker
// anywhere in the line, which is removed before positions are read.
func parseDetails(line string, loc *time.Location) (details, error) {
	raw := strings.Split(line, "|")
	if len(raw) < 4 || len(raw) > 6 {
		return details{}, domain.ParseError("details %q: expected 4 to 6 segments, got %d", line, len(raw))
	}

	var d details
	segments := make([]string, 0, len(raw))
	for _, seg := range raw {
		seg = strings.TrimSpace(seg)
		if strings.Contains(strings.ToLower(seg), "extra credit") {
			d.isExtraCredit = true
			continue
		}
		segments = append(segments, seg)
	}

	d.isTask = len(raw) == 4 && !d.isExtraCredit
	if !d.isTask && len(segments) != 4 && len(segments) != 5 {
		return details{}, domain.ParseError("details %q: %d segments left after extra credit", line, len(segments))
	}

	var err error
	if d.due, err = parseLabelledDate(segments[0], loc); err != nil {
		return details{}, err
	}
	if d.assigned, err = parseLabelledDate(segments[1], loc); err != nil {
		return details{}, err
	}

	rest := segments[2:]
	if len(rest) == 3 {
		m := pointsText.FindStringSubmatch(rest[0])
		if m == nil {
			return details{}, domain.ParseError("details %q: bad points %q", line, rest[0])
		}
		points, _ := strconv.ParseFloat(m[1], 64)
		d.maxPoints = &points
		rest = rest[1:]
	}
	d.className = rest[0]
	d.kind = rest[1]
	return d, nil
}

func parseLabelledDate(seg string, loc *time.Location) (time.Time, error) {
	m := labelledDate.FindStringSubmatch(seg)
	if m == nil {
		return time.Time{}, domain.ParseError("unrecognized date segment %q", seg)
	}
	t, err := hostdate.ParseIn(m[1], loc)
	if err != nil {
		return time.Time{}, domain.WrapError(domain.ErrCodeParse, "parse date", err)
	}
	return t, nil
}
