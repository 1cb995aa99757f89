package thread

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// headerMatch is one detected quoted-reply header. start/end are byte offsets
// of the header itself within the scanned body; the reply's own body runs
// from end to the start of the next header of any style.
type headerMatch struct {
	start, end int
	from       string
	date       string
	to         string
	cc         string
	subject    string
}

type matcher interface {
	find(body string) []headerMatch
}

// Ordered cascade: first style with at least one match wins for a container.
var matchers = []matcher{
	labeledMatcher{},
	onWroteMatcher{},
	onAtWroteMatcher{},
}

// From: Jane Doe <jane@example.com>
// Sent: Monday, January 2, 2006 3:04 PM
// To: John <john@example.com>
// Subject: RE: quarterly numbers
var labeledRE = regexp.MustCompile(
	`(?m)^[ \t>]*From:[ \t]*(.*)\r?\n` +
		`(?:[ \t>]*Sent:[ \t]*(.*)\r?\n)?` +
		`(?:[ \t>]*Date:[ \t]*(.*)\r?\n)?` +
		`(?:[ \t>]*To:[ \t]*(.*)\r?\n)?` +
		`(?:[ \t>]*Cc:[ \t]*(.*)\r?\n)?` +
		`[ \t>]*Subject:[ \t]*(.*)(?:\r?\n|$)`)

type labeledMatcher struct{}

func (labeledMatcher) find(body string) []headerMatch {
	var found []headerMatch
	for _, idx := range labeledRE.FindAllStringSubmatchIndex(body, -1) {
		m := headerMatch{
			start:   idx[0],
			end:     idx[1],
			from:    group(body, idx, 1),
			date:    group(body, idx, 2),
			to:      group(body, idx, 4),
			cc:      group(body, idx, 5),
			subject: group(body, idx, 6),
		}
		if m.date == "" {
			m.date = group(body, idx, 3)
		}
		found = append(found, m)
	}
	return found
}

// On Mon, 2 Jan 2006 15:04, Jane Doe wrote:
var onWroteRE = regexp.MustCompile(`(?m)^On (.+), (.+?) wrote:[ \t]*\r?$`)

type onWroteMatcher struct{}

func (onWroteMatcher) find(body string) []headerMatch {
	var found []headerMatch
	for _, idx := range onWroteRE.FindAllStringSubmatchIndex(body, -1) {
		date := group(body, idx, 1)
		// Dates with a clock component belong to the "On <date> at <time>"
		// style, which runs next in the cascade.
		if strings.Contains(date, " at ") {
			continue
		}
		found = append(found, headerMatch{
			start: idx[0],
			end:   idx[1],
			date:  date,
			from:  group(body, idx, 2),
		})
	}
	return found
}

// On Jan 2, 2006 at 3:04 PM, Jane Doe wrote:
var onAtWroteRE = regexp.MustCompile(`(?m)^On (.+) at (.+?), (.+?) wrote:[ \t]*\r?$`)

type onAtWroteMatcher struct{}

func (onAtWroteMatcher) find(body string) []headerMatch {
	var found []headerMatch
	for _, idx := range onAtWroteRE.FindAllStringSubmatchIndex(body, -1) {
		found = append(found, headerMatch{
			start: idx[0],
			end:   idx[1],
			date:  group(body, idx, 1) + " " + group(body, idx, 2),
			from:  group(body, idx, 3),
		})
	}
	return found
}

func group(body string, idx []int, n int) string {
	lo, hi := idx[2*n], idx[2*n+1]
	if lo < 0 {
		return ""
	}
	return body[lo:hi]
}

var leadingWeekdayRE = regexp.MustCompile(`(?i)^(?:mon|tues?|wed(?:nes)?|thu(?:rs)?|fri|sat(?:ur)?|sun)(?:day)?,?\s+`)

// parseLoose turns a quoted-header date string into a UTC timestamp. It tries
// the strict RFC 5322 parser first, then the lenient parser, then the lenient
// parser with the leading weekday stripped. Returns nil when nothing works.
func parseLoose(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if t, err := mail.ParseDate(raw); err == nil {
		u := t.UTC()
		return &u
	}
	candidate := strings.ReplaceAll(raw, " at ", " ")
	if t, err := dateparse.ParseAny(candidate); err == nil {
		u := t.UTC()
		return &u
	}
	if stripped := leadingWeekdayRE.ReplaceAllString(candidate, ""); stripped != candidate {
		if t, err := dateparse.ParseAny(stripped); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}
