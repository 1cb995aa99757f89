// Package thread segments one message container into the ordered list of
// logical messages it represents: the container itself, plus either its
// embedded message/rfc822 parts or quoted replies detected in its body text.
package thread

import (
	"sort"
	"strings"

	"github.com/emlkit/eml2md/extract"
	"github.com/emlkit/eml2md/model"
)

// Segment produces the logical messages of one raw container. The container's
// own record always comes first. A multipart container with embedded messages
// is treated as an explicit thread; otherwise the plain-text body is scanned
// for quoted-reply headers. Heuristically carved messages never carry
// attachments.
func Segment(raw []byte) ([]model.MessageRecord, error) {
	entity, err := extract.Read(raw)
	if err != nil {
		return nil, err
	}

	ctype, _, _ := entity.Header.ContentType()
	rec, embedded := extract.Container(entity)

	if strings.HasPrefix(ctype, "multipart/") && len(embedded) > 0 {
		records := []model.MessageRecord{rec}
		for _, sub := range embedded {
			subEntity, err := extract.Read(sub)
			if err != nil {
				continue
			}
			records = append(records, extract.Message(subEntity))
		}
		return records, nil
	}

	return append([]model.MessageRecord{rec}, carveQuoted(rec.Body)...), nil
}

// carveQuoted finds quoted-reply headers in a body and turns each into its
// own record. Only the first matcher style that yields a match is used, but
// body boundaries cut at the earliest next header of any style, so mixed
// quoting does not bleed one reply into the next. Empty bodies are kept.
func carveQuoted(body string) []model.MessageRecord {
	var (
		chosen     []headerMatch
		boundaries []int
	)
	for _, m := range matchers {
		found := m.find(body)
		if len(chosen) == 0 && len(found) > 0 {
			chosen = found
		}
		for _, h := range found {
			boundaries = append(boundaries, h.start)
		}
	}
	if len(chosen) == 0 {
		return nil
	}
	sort.Ints(boundaries)

	records := make([]model.MessageRecord, 0, len(chosen))
	for _, h := range chosen {
		end := len(body)
		for _, b := range boundaries {
			if b > h.start {
				end = b
				break
			}
		}

		var segment string
		if end > h.end {
			segment = body[h.end:end]
		}

		rec := model.MessageRecord{
			From:    strings.TrimSpace(h.from),
			To:      strings.TrimSpace(h.to),
			Cc:      strings.TrimSpace(h.cc),
			Subject: strings.TrimSpace(h.subject),
			Body:    strings.TrimSpace(segment),
		}
		if t := parseLoose(h.date); t != nil {
			rec.Date = t
		} else {
			rec.DateRaw = strings.TrimSpace(h.date)
		}
		records = append(records, rec)
	}
	return records
}
