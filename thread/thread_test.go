package thread

import (
	"strings"
	"testing"
	"time"
)

func container(body string) []byte {
	return []byte(strings.Join([]string{
		"From: Alice <alice@example.com>",
		"To: Bob <bob@example.com>",
		"Date: Mon, 02 Jan 2006 15:04:05 +0000",
		"Subject: Re: planning",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n"))
}

func TestSegment_NoQuoting(t *testing.T) {
	records, err := Segment(container("just the one message, nothing quoted"))
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Segment() = %d records, want 1", len(records))
	}
	if records[0].From != "Alice <alice@example.com>" {
		t.Errorf("From = %q", records[0].From)
	}
}

func TestSegment_LabeledQuotedBlock(t *testing.T) {
	body := strings.Join([]string{
		"Thanks, that works for me.",
		"",
		"From: Carol <carol@example.com>",
		"Sent: Monday, January 2, 2006 10:00 AM",
		"To: Alice <alice@example.com>",
		"Subject: RE: planning",
		"",
		"Can we move the meeting to Tuesday?",
	}, "\n")

	records, err := Segment(container(body))
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Segment() = %d records, want 2", len(records))
	}

	main := records[0]
	if !strings.Contains(main.Body, "Thanks, that works for me.") {
		t.Errorf("main Body = %q", main.Body)
	}

	quoted := records[1]
	if quoted.From != "Carol <carol@example.com>" {
		t.Errorf("quoted From = %q", quoted.From)
	}
	if quoted.To != "Alice <alice@example.com>" {
		t.Errorf("quoted To = %q", quoted.To)
	}
	if quoted.Subject != "RE: planning" {
		t.Errorf("quoted Subject = %q", quoted.Subject)
	}
	if quoted.Body != "Can we move the meeting to Tuesday?" {
		t.Errorf("quoted Body = %q", quoted.Body)
	}
	if quoted.Date == nil {
		t.Fatalf("quoted Date = nil (raw %q)", quoted.DateRaw)
	}
	want := time.Date(2006, 1, 2, 10, 0, 0, 0, time.UTC)
	if !quoted.Date.Equal(want) {
		t.Errorf("quoted Date = %v, want %v", quoted.Date, want)
	}
}

func TestSegment_LabeledBlocksChained(t *testing.T) {
	body := strings.Join([]string{
		"Latest reply.",
		"",
		"From: Carol <carol@example.com>",
		"Subject: RE: planning",
		"",
		"Middle reply.",
		"",
		"From: Dave <dave@example.com>",
		"Subject: planning",
		"",
		"Oldest message.",
	}, "\n")

	records, err := Segment(container(body))
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Segment() = %d records, want 3", len(records))
	}
	if records[1].Body != "Middle reply." {
		t.Errorf("first quoted Body = %q, want text cut at the next header", records[1].Body)
	}
	if records[2].Body != "Oldest message." {
		t.Errorf("second quoted Body = %q", records[2].Body)
	}
}

func TestSegment_OnWrote(t *testing.T) {
	body := strings.Join([]string{
		"Sounds good.",
		"",
		"On Mon, 2 Jan 2006, Carol Smith wrote:",
		"",
		"Let me know what you think.",
	}, "\n")

	records, err := Segment(container(body))
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Segment() = %d records, want 2", len(records))
	}
	quoted := records[1]
	if quoted.From != "Carol Smith" {
		t.Errorf("quoted From = %q", quoted.From)
	}
	if quoted.Body != "Let me know what you think." {
		t.Errorf("quoted Body = %q", quoted.Body)
	}
	if quoted.Date == nil {
		t.Fatalf("quoted Date = nil (raw %q)", quoted.DateRaw)
	}
}

func TestSegment_OnAtWrote(t *testing.T) {
	body := strings.Join([]string{
		"Agreed.",
		"",
		"On Jan 2, 2006 at 3:04 PM, Carol Smith wrote:",
		"",
		"Here is the draft.",
	}, "\n")

	records, err := Segment(container(body))
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Segment() = %d records, want 2", len(records))
	}
	quoted := records[1]
	if quoted.From != "Carol Smith" {
		t.Errorf("quoted From = %q", quoted.From)
	}
	if quoted.Body != "Here is the draft." {
		t.Errorf("quoted Body = %q", quoted.Body)
	}
	if quoted.Date == nil {
		t.Fatalf("quoted Date = nil (raw %q)", quoted.DateRaw)
	}
	want := time.Date(2006, 1, 2, 15, 4, 0, 0, time.UTC)
	if !quoted.Date.Equal(want) {
		t.Errorf("quoted Date = %v, want %v", quoted.Date, want)
	}
}

func TestSegment_EmptyQuotedBody(t *testing.T) {
	body := strings.Join([]string{
		"Top text.",
		"",
		"On Mon, 2 Jan 2006, Carol wrote:",
	}, "\n")

	records, err := Segment(container(body))
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Segment() = %d records, want 2", len(records))
	}
	if records[1].Body != "" {
		t.Errorf("quoted Body = %q, want empty", records[1].Body)
	}
}

func TestSegment_EmbeddedMessagesWinOverHeuristics(t *testing.T) {
	raw := []byte(strings.Join([]string{
		"From: alice@example.com",
		"Subject: forwarded",
		"Content-Type: multipart/mixed; boundary=OUTER",
		"",
		"--OUTER",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"On Mon, 2 Jan 2006, someone wrote:",
		"this line must not be carved, the container is explicit",
		"--OUTER",
		"Content-Type: message/rfc822",
		"",
		"From: carol@example.com",
		"Subject: inner",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"inner body",
		"--OUTER--",
		"",
	}, "\r\n"))

	records, err := Segment(raw)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Segment() = %d records, want container + embedded", len(records))
	}
	if records[1].From != "carol@example.com" {
		t.Errorf("embedded From = %q", records[1].From)
	}
	if records[1].Body != "inner body" {
		t.Errorf("embedded Body = %q", records[1].Body)
	}
}

func TestParseLoose(t *testing.T) {
	tests := []struct {
		raw  string
		want *time.Time
	}{
		{"Mon, 02 Jan 2006 15:04:05 +0000", timePtr(2006, 1, 2, 15, 4, 5)},
		{"Monday, January 2, 2006 10:00 AM", timePtr(2006, 1, 2, 10, 0, 0)},
		{"Jan 2, 2006 at 3:04 PM", timePtr(2006, 1, 2, 15, 4, 0)},
		{"not a date at all", nil},
		{"", nil},
	}

	for _, tt := range tests {
		got := parseLoose(tt.raw)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("parseLoose(%q) = %v, want nil", tt.raw, got)
		case tt.want != nil && got == nil:
			t.Errorf("parseLoose(%q) = nil, want %v", tt.raw, tt.want)
		case tt.want != nil && !got.Equal(*tt.want):
			t.Errorf("parseLoose(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func timePtr(year int, month time.Month, day, hour, min, sec int) *time.Time {
	t := time.Date(year, month, day, hour, min, sec, 0, time.UTC)
	return &t
}
