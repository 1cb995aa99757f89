package convert

import (
	"strings"
	"testing"
)

func TestThread_SingleMessage(t *testing.T) {
	raw := []byte(strings.Join([]string{
		"From: Alice <alice@example.com>",
		"To: Bob <bob@example.com>",
		"Date: Mon, 02 Jan 2006 15:04:05 +0000",
		"Subject: planning",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"hello Bob",
	}, "\r\n"))

	doc, records, err := Thread(raw, Options{})
	if err != nil {
		t.Fatalf("Thread() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Thread() = %d records, want 1", len(records))
	}
	for _, want := range []string{
		"# Email Thread",
		"## Email 1",
		"**From**: Alice <alice@example.com>",
		"**Subject**: planning",
		"hello Bob",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q:\n%s", want, doc)
		}
	}
}

func TestThread_QuotedReplyCarvedAndOrdered(t *testing.T) {
	raw := []byte(strings.Join([]string{
		"From: Alice <alice@example.com>",
		"To: Carol <carol@example.com>",
		"Date: Tue, 03 Jan 2006 09:00:00 +0000",
		"Subject: Re: planning",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"works for me",
		"",
		"From: Carol <carol@example.com>",
		"Sent: Monday, January 2, 2006 10:00 AM",
		"To: Alice <alice@example.com>",
		"Subject: planning",
		"",
		"how about tuesday?",
	}, "\r\n"))

	doc, records, err := Thread(raw, Options{})
	if err != nil {
		t.Fatalf("Thread() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Thread() = %d records, want 2", len(records))
	}

	// Oldest first by default: the carved reply renders before the
	// container's own message.
	carved := strings.Index(doc, "how about tuesday?")
	outer := strings.Index(doc, "works for me")
	if carved < 0 || outer < 0 || carved > outer {
		t.Errorf("ordering wrong (carved=%d outer=%d):\n%s", carved, outer, doc)
	}
}

func TestThread_NewestFirst(t *testing.T) {
	raw := []byte(strings.Join([]string{
		"From: Alice <alice@example.com>",
		"Date: Tue, 03 Jan 2006 09:00:00 +0000",
		"Subject: Re: planning",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"works for me",
		"",
		"From: Carol <carol@example.com>",
		"Sent: Monday, January 2, 2006 10:00 AM",
		"Subject: planning",
		"",
		"how about tuesday?",
	}, "\r\n"))

	doc, _, err := Thread(raw, Options{NewestFirst: true})
	if err != nil {
		t.Fatalf("Thread() error = %v", err)
	}
	if strings.Index(doc, "works for me") > strings.Index(doc, "how about tuesday?") {
		t.Errorf("newest-first ordering violated:\n%s", doc)
	}
}

func TestThread_BrokenContainer(t *testing.T) {
	if _, _, err := Thread([]byte("total garbage\x00"), Options{}); err == nil {
		t.Skip("parser tolerated the input; nothing to assert")
	}
}
