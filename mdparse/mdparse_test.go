package mdparse

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/emlkit/eml2md/markdown"
	"github.com/emlkit/eml2md/model"
)

const sampleDoc = `# Email Thread

## Email 1

**Date**: 2006-01-02 09:00:00

**From**: Alice <alice@example.com>

**To**: Bob <bob@example.com>

**Subject**: Re: planning

### Content

first message body

---

## Email 2

**Date**: 2006-01-03 10:30:00

**From**: Carol <carol@example.com>

**To**: Alice <alice@example.com>, Bob <bob@example.com>

**CC**: Dave <dave@example.com>

**Subject**: planning

### Content

second message body

### Attachments

- [report.pdf](report.pdf)

---
`

func TestParse_SampleDocument(t *testing.T) {
	emails, err := Parse(sampleDoc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(emails) != 2 {
		t.Fatalf("Parse() = %d emails, want 2", len(emails))
	}

	// Newest first.
	newest := emails[0]
	if newest.Number != 2 {
		t.Errorf("newest Number = %d, want 2", newest.Number)
	}
	if newest.From != "Carol <carol@example.com>" {
		t.Errorf("newest From = %q", newest.From)
	}
	if newest.DateIn != "2006-01-03 10:30:00" {
		t.Errorf("newest DateIn = %q", newest.DateIn)
	}
	if newest.DateOut != "2006-01-03 10:30" {
		t.Errorf("newest DateOut = %q", newest.DateOut)
	}
	if len(newest.To) != 2 {
		t.Fatalf("newest To = %v, want 2 recipients", newest.To)
	}
	if newest.To[0] != "Alice <alice@example.com>" || newest.To[1] != "Bob <bob@example.com>" {
		t.Errorf("newest To = %v", newest.To)
	}
	if len(newest.Cc) != 1 || newest.Cc[0] != "Dave <dave@example.com>" {
		t.Errorf("newest Cc = %v", newest.Cc)
	}
	if newest.Content != "second message body" {
		t.Errorf("newest Content = %q", newest.Content)
	}

	oldest := emails[1]
	if oldest.Number != 1 {
		t.Errorf("oldest Number = %d, want 1", oldest.Number)
	}
	if oldest.Subject != "planning" {
		t.Errorf("oldest Subject = %q, want reply prefix stripped", oldest.Subject)
	}
	if oldest.Content != "first message body" {
		t.Errorf("oldest Content = %q", oldest.Content)
	}
}

func TestParse_NoMessages(t *testing.T) {
	_, err := Parse("# Just a title\n\nsome prose, no email sections\n")
	if !errors.Is(err, ErrNoMessages) {
		t.Errorf("Parse() error = %v, want ErrNoMessages", err)
	}
}

func TestParse_PartialSection(t *testing.T) {
	doc := "## Email 1\n\n**From**: alice@example.com\n\n### Content\n\nhello\n\n---\n"
	emails, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(emails) != 1 {
		t.Fatalf("Parse() = %d emails, want 1", len(emails))
	}
	if emails[0].Date != nil || emails[0].DateIn != "" {
		t.Errorf("Date fields should be empty: %+v", emails[0])
	}
	if emails[0].From != "alice@example.com" {
		t.Errorf("From = %q", emails[0].From)
	}
}

func TestParse_UndatedSortsLast(t *testing.T) {
	doc := strings.Join([]string{
		"## Email 1",
		"",
		"**From**: undated@example.com",
		"",
		"### Content",
		"",
		"no date here",
		"",
		"---",
		"",
		"## Email 2",
		"",
		"**Date**: 2006-01-02 09:00:00",
		"",
		"**From**: dated@example.com",
		"",
		"### Content",
		"",
		"dated",
		"",
		"---",
	}, "\n")

	emails, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(emails) != 2 {
		t.Fatalf("Parse() = %d emails, want 2", len(emails))
	}
	if emails[0].From != "dated@example.com" {
		t.Errorf("dated email should sort first, got %q", emails[0].From)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	when := time.Date(2006, 1, 2, 9, 0, 0, 0, time.UTC)
	records := []model.MessageRecord{{
		Date:    &when,
		From:    "Alice <alice@example.com>",
		To:      "Bob <bob@example.com>",
		Cc:      "Carol <carol@example.com>",
		Subject: "planning",
		Body:    "the quarterly numbers look fine",
	}}

	doc := markdown.Render(records, false)
	emails, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(emails) != 1 {
		t.Fatalf("Parse() = %d emails, want 1", len(emails))
	}

	email := emails[0]
	if email.From != "Alice <alice@example.com>" {
		t.Errorf("From = %q", email.From)
	}
	if len(email.To) != 1 || email.To[0] != "Bob <bob@example.com>" {
		t.Errorf("To = %v", email.To)
	}
	if len(email.Cc) != 1 || email.Cc[0] != "Carol <carol@example.com>" {
		t.Errorf("Cc = %v", email.Cc)
	}
	if email.Subject != "planning" {
		t.Errorf("Subject = %q", email.Subject)
	}
	if email.Content != "the quarterly numbers look fine" {
		t.Errorf("Content = %q", email.Content)
	}
	if email.Date == nil || !email.Date.Equal(when) {
		t.Errorf("Date = %v, want %v", email.Date, when)
	}
}

func TestStripSubjectPrefixes(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Re: planning", "planning"},
		{"RE: FW: Fwd: planning", "planning"},
		{"re : planning", "planning"},
		{"planning", "planning"},
		{"Reply: planning", "Reply: planning"},
		{"  Re: planning  ", "planning"},
	}
	for _, tt := range tests {
		if got := StripSubjectPrefixes(tt.in); got != tt.want {
			t.Errorf("StripSubjectPrefixes(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripSubjectPrefixes_Idempotent(t *testing.T) {
	once := StripSubjectPrefixes("Re: Fw: planning")
	twice := StripSubjectPrefixes(once)
	if once != twice {
		t.Errorf("not idempotent: %q -> %q", once, twice)
	}
}

func TestTruncateQuotedHistory_UnderscoreLine(t *testing.T) {
	content := "keep this part\n\n______\nFrom: someone@example.com\nquoted history"
	got := truncateQuotedHistory(content)
	if got != "keep this part" {
		t.Errorf("truncateQuotedHistory() = %q", got)
	}
}

func TestTruncateQuotedHistory_LongRun(t *testing.T) {
	content := "keep this part\n" + strings.Repeat("_", 40) + "\nquoted history"
	got := truncateQuotedHistory(content)
	if got != "keep this part" {
		t.Errorf("truncateQuotedHistory() = %q", got)
	}
}

func TestTruncateQuotedHistory_InlineToken(t *testing.T) {
	content := "keep this " + strings.Repeat("_", 32) + " drop this"
	got := truncateQuotedHistory(content)
	if got != "keep this" {
		t.Errorf("truncateQuotedHistory() = %q", got)
	}
}

func TestTruncateQuotedHistory_NoMarker(t *testing.T) {
	content := "nothing _to_ cut here\neven with under_scores inline"
	if got := truncateQuotedHistory(content); got != content {
		t.Errorf("truncateQuotedHistory() = %q, want input unchanged", got)
	}
}
