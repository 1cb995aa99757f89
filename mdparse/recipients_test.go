package mdparse

import (
	"reflect"
	"testing"
)

func TestParseRecipients(t *testing.T) {
	tests := []struct {
		name  string
		field string
		want  []string
	}{
		{
			name:  "single name and email",
			field: "Alice <alice@example.com>",
			want:  []string{"Alice <alice@example.com>"},
		},
		{
			name:  "comma separated list",
			field: "Alice <alice@example.com>, Bob <bob@example.com>",
			want:  []string{"Alice <alice@example.com>", "Bob <bob@example.com>"},
		},
		{
			name:  "stray comma between name and address",
			field: "Alice <alice@example.com>, Bob, <bob@example.com>",
			want:  []string{"Alice <alice@example.com>", "Bob <bob@example.com>"},
		},
		{
			name:  "bare addresses",
			field: "alice@example.com, bob@example.com",
			want:  []string{"alice@example.com", "bob@example.com"},
		},
		{
			name:  "mixed named and bare",
			field: "Alice <alice@example.com>; bob@example.com",
			want:  []string{"Alice <alice@example.com>", "bob@example.com"},
		},
		{
			name:  "wrapped lines joined",
			field: "Alice\n <alice@example.com>,\n Bob <bob@example.com>",
			want:  []string{"Alice <alice@example.com>", "Bob <bob@example.com>"},
		},
		{
			name:  "duplicates removed keeping first",
			field: "Alice <alice@example.com>, Alice <alice@example.com>",
			want:  []string{"Alice <alice@example.com>"},
		},
		{
			name:  "names without addresses fall back to splitting",
			field: "Team Finance; Team Legal",
			want:  []string{"Team Finance", "Team Legal"},
		},
		{
			name:  "empty field",
			field: "   ",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseRecipients(tt.field)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseRecipients(%q) = %v, want %v", tt.field, got, tt.want)
			}
		})
	}
}

func TestParseRecipients_AddressInsideBracketsNotDoubled(t *testing.T) {
	got := ParseRecipients("Alice <alice@example.com>")
	if len(got) != 1 {
		t.Errorf("address counted twice: %v", got)
	}
}

func TestShortRecipients(t *testing.T) {
	if got := ShortRecipients(nil); got != "" {
		t.Errorf("ShortRecipients(nil) = %q", got)
	}
	three := []string{"a", "b", "c"}
	if got := ShortRecipients(three); got != "a, b, c" {
		t.Errorf("ShortRecipients(three) = %q", got)
	}
	five := []string{"a", "b", "c", "d", "e"}
	if got := ShortRecipients(five); got != "a, b, c, and 2 others..." {
		t.Errorf("ShortRecipients(five) = %q", got)
	}
}

func TestFirstWords(t *testing.T) {
	if got := FirstWords("one two three four", 2); got != "one two" {
		t.Errorf("FirstWords() = %q", got)
	}
	if got := FirstWords("one two", 10); got != "one two" {
		t.Errorf("FirstWords() = %q", got)
	}
	if got := FirstWords("", 5); got != "" {
		t.Errorf("FirstWords() = %q", got)
	}
}
