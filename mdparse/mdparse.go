// Package mdparse re-derives structured message records from a rendered
// thread document. It tolerates hand-edited documents: partial sections yield
// partial records, and chunks with none of the known fields are dropped as
// noise.
package mdparse

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	dateInFormat  = "2006-01-02 15:04:05"
	dateOutFormat = "2006-01-02 15:04"
)

// ErrNoMessages is returned when a document contains no recognizable
// message sections.
var ErrNoMessages = errors.New("no messages found")

// Email is one parsed section of a rendered thread document. Number is the
// section's own sequence number, or 0 when the header carried none. DateIn is
// the raw Date field text; DateOut is its reformatted short form, empty when
// the raw text does not match the renderer's timestamp layout.
type Email struct {
	Number  int
	DateIn  string
	DateOut string
	Date    *time.Time
	From    string
	To      []string
	Cc      []string
	Subject string
	Content string
}

var (
	sectionRE = regexp.MustCompile(`(?m)^## Email\s+(\d+)\s*$`)
	dateRE    = regexp.MustCompile(`\*\*Date\*\*:\s*(.+)`)
	fromRE    = regexp.MustCompile(`\*\*From\*\*:\s*(.+)`)
	toRE      = regexp.MustCompile(`(?s)\*\*To\*\*:\s*(.+?)(?:\n\*\*(?:CC|Subject)\*\*:|\n###|$)`)
	ccRE      = regexp.MustCompile(`(?s)\*\*CC\*\*:\s*(.+?)(?:\n\*\*Subject\*\*:|\n###|$)`)
	subjectRE = regexp.MustCompile(`\*\*Subject\*\*:\s*(.+)`)
	contentRE = regexp.MustCompile(`(?s)### Content\s*\n(.+?)(?:\n-{3,}|\n## |\n### Attachments|$)`)
)

// Parse splits a document into sections and extracts one Email per section,
// sorted newest first with undated sections last. Returns ErrNoMessages when
// no section yields a record.
func Parse(doc string) ([]Email, error) {
	var emails []Email
	for _, chunk := range splitSections(doc) {
		if email, ok := parseSection(chunk); ok {
			emails = append(emails, email)
		}
	}
	if len(emails) == 0 {
		return nil, ErrNoMessages
	}

	sort.SliceStable(emails, func(i, j int) bool {
		a, b := emails[i].Date, emails[j].Date
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return emails, nil
}

// splitSections cuts the document before each section header. The leading
// chunk (document title and anything before the first header) is included;
// parseSection drops it when it carries no fields.
func splitSections(doc string) []string {
	starts := sectionRE.FindAllStringIndex(doc, -1)
	if len(starts) == 0 {
		return []string{doc}
	}

	var chunks []string
	if lead := doc[:starts[0][0]]; strings.TrimSpace(lead) != "" {
		chunks = append(chunks, lead)
	}
	for i, span := range starts {
		end := len(doc)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		chunks = append(chunks, doc[span[0]:end])
	}
	return chunks
}

// parseSection extracts one Email from a chunk. A chunk with none of
// Date/From/Subject/Content is non-message noise. Partial matches never fail;
// they just leave the field empty.
func parseSection(chunk string) (Email, bool) {
	if strings.TrimSpace(chunk) == "" {
		return Email{}, false
	}

	dateM := dateRE.FindStringSubmatch(chunk)
	fromM := fromRE.FindStringSubmatch(chunk)
	subjectM := subjectRE.FindStringSubmatch(chunk)
	contentM := contentRE.FindStringSubmatch(chunk)
	if dateM == nil && fromM == nil && subjectM == nil && contentM == nil {
		return Email{}, false
	}

	var email Email
	if numM := sectionRE.FindStringSubmatch(chunk); numM != nil {
		email.Number = atoi(numM[1])
	}

	if dateM != nil {
		email.DateIn = cleanWS(dateM[1])
		if t, err := time.Parse(dateInFormat, email.DateIn); err == nil {
			email.Date = &t
			email.DateOut = t.Format(dateOutFormat)
		}
	}
	if fromM != nil {
		email.From = cleanWS(fromM[1])
	}
	if toM := toRE.FindStringSubmatch(chunk); toM != nil {
		email.To = ParseRecipients(toM[1])
	}
	if ccM := ccRE.FindStringSubmatch(chunk); ccM != nil {
		email.Cc = ParseRecipients(ccM[1])
	}
	if subjectM != nil {
		email.Subject = StripSubjectPrefixes(cleanWS(subjectM[1]))
	}
	if contentM != nil {
		email.Content = truncateQuotedHistory(strings.TrimSpace(contentM[1]))
	}
	return email, true
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

var wsRE = regexp.MustCompile(`\s+`)

func cleanWS(text string) string {
	return wsRE.ReplaceAllString(strings.TrimSpace(text), " ")
}

var subjectPrefixRE = regexp.MustCompile(`(?i)^(?:re|fw|fwd)\s*:\s*`)

// StripSubjectPrefixes removes reply/forward prefixes from the front of a
// subject, repeatedly, until none remains. Idempotent.
func StripSubjectPrefixes(subject string) string {
	s := strings.TrimSpace(subject)
	for {
		stripped := subjectPrefixRE.ReplaceAllString(s, "")
		if stripped == s {
			return s
		}
		s = stripped
	}
}

var (
	underscoreRunRE = regexp.MustCompile(`(?m)^_{6,}.*$`)

	// The exact separator token Outlook-style clients insert before quoted
	// history, as emitted by the source renderer.
	quotedHistoryToken = strings.Repeat("_", 32)
)

// truncateQuotedHistory removes a trailing quoted-history block. The two
// markers are checked independently and in this order: a line of six or more
// underscores, then the exact 32-underscore token anywhere in the text.
func truncateQuotedHistory(content string) string {
	cut := -1
	if loc := underscoreRunRE.FindStringIndex(content); loc != nil {
		cut = loc[0]
	} else if p := strings.Index(content, quotedHistoryToken); p >= 0 {
		cut = p
	}
	if cut < 0 {
		return content
	}
	return strings.TrimRight(content[:cut], " \t\r\n")
}
