// Package markdown renders message records into the thread document format.
package markdown

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/emlkit/eml2md/model"
)

// DateFormat is the timestamp layout used for the Date field. The reverse
// parser in mdparse accepts exactly this layout.
const DateFormat = "2006-01-02 15:04:05"

// Render serializes records into one document, sorted oldest first by default
// or newest first when the flag is set. Undated records are treated as the
// minimum timestamp, so they take the oldest-first position in either
// direction. The output is fully determined by the inputs.
func Render(records []model.MessageRecord, newestFirst bool) string {
	sorted := make([]model.MessageRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sortKey(sorted[i]), sortKey(sorted[j])
		if newestFirst {
			return a.After(b)
		}
		return a.Before(b)
	})

	var doc strings.Builder
	doc.WriteString("# Email Thread\n\n")

	for i, rec := range sorted {
		fmt.Fprintf(&doc, "## Email %d\n\n", i+1)

		switch {
		case rec.Date != nil:
			fmt.Fprintf(&doc, "**Date**: %s\n\n", rec.Date.Format(DateFormat))
		case rec.DateRaw != "":
			fmt.Fprintf(&doc, "**Date**: %s\n\n", rec.DateRaw)
		}

		fmt.Fprintf(&doc, "**From**: %s\n\n", rec.From)
		fmt.Fprintf(&doc, "**To**: %s\n\n", rec.To)
		if rec.Cc != "" {
			fmt.Fprintf(&doc, "**CC**: %s\n\n", rec.Cc)
		}
		fmt.Fprintf(&doc, "**Subject**: %s\n\n", rec.Subject)

		doc.WriteString("### Content\n\n")
		doc.WriteString(strings.TrimSpace(rec.Body))
		doc.WriteString("\n\n")

		if len(rec.Attachments) > 0 {
			doc.WriteString("### Attachments\n\n")
			for _, att := range rec.Attachments {
				fmt.Fprintf(&doc, "- [%s](%s)\n", att.Filename, att.Filename)
			}
			doc.WriteString("\n")
		}

		doc.WriteString("---\n\n")
	}

	return doc.String()
}

func sortKey(rec model.MessageRecord) time.Time {
	if rec.Date != nil {
		return *rec.Date
	}
	return time.Time{}
}
