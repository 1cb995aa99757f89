package mdparse

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	foldedLineRE = regexp.MustCompile(`[\r\n\t]+`)
	strayCommaRE = regexp.MustCompile(`\b,\s*(<[^>]+>)`)
	multiSpaceRE = regexp.MustCompile(`\s{2,}`)
	nameEmailRE  = regexp.MustCompile(`(?:^|[;,])\s*([^<>",;]+?)\s*<([^>]+)>`)
	bareEmailRE  = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	leadingSepRE = regexp.MustCompile(`^[,;]\s*`)
	splitFieldRE = regexp.MustCompile(`[;,]`)
)

// ParseRecipients normalizes a To/CC field into a deduplicated ordered list
// of "Name <email>" or bare-email strings. It tolerates line-wrapped fields,
// a stray comma between a name and its address, and repeated delimiters; no
// entry ever starts with a leftover separator.
func ParseRecipients(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	s := normalizeGlue(field)

	var recipients []string
	masked := []byte(s)

	for _, idx := range nameEmailRE.FindAllStringSubmatchIndex(s, -1) {
		name := cleanWS(s[idx[2]:idx[3]])
		email := cleanWS(s[idx[4]:idx[5]])
		recipients = append(recipients, fmt.Sprintf("%s <%s>", name, email))
		for i := idx[0]; i < idx[1]; i++ {
			masked[i] = 0
		}
	}

	// Bare addresses left over after the Name <email> pass. Skip matches
	// glued to a '<' or '@' so the address inside an already-consumed
	// bracket pair is not counted twice.
	for _, idx := range bareEmailRE.FindAllStringIndex(string(masked), -1) {
		if idx[0] > 0 && (masked[idx[0]-1] == '<' || masked[idx[0]-1] == '@') {
			continue
		}
		recipients = append(recipients, string(masked[idx[0]:idx[1]]))
	}

	// Fallback split when nothing matched at all.
	if len(recipients) == 0 {
		for _, part := range splitFieldRE.Split(s, -1) {
			if part = strings.TrimSpace(part); part != "" {
				recipients = append(recipients, part)
			}
		}
	}

	seen := make(map[string]bool, len(recipients))
	unique := recipients[:0]
	for _, r := range recipients {
		r = strings.TrimSpace(leadingSepRE.ReplaceAllString(r, ""))
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		unique = append(unique, r)
	}
	return unique
}

// normalizeGlue joins wrapped lines and repairs "Name, <email>" artifacts.
func normalizeGlue(s string) string {
	s = foldedLineRE.ReplaceAllString(s, " ")
	s = strayCommaRE.ReplaceAllString(s, " $1")
	return strings.TrimSpace(multiSpaceRE.ReplaceAllString(s, " "))
}

// ShortRecipients collapses a long recipient list for one-line previews.
func ShortRecipients(recipients []string) string {
	if len(recipients) == 0 {
		return ""
	}
	if len(recipients) > 3 {
		return fmt.Sprintf("%s, %s, %s, and %d others...",
			recipients[0], recipients[1], recipients[2], len(recipients)-3)
	}
	return strings.Join(recipients, ", ")
}

// FirstWords returns the first n whitespace-delimited words of a text.
func FirstWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
