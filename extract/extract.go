// Package extract flattens parsed MIME containers into MessageRecord values.
package extract

import (
	"bytes"
	"io"
	"mime"
	"net/mail"
	"regexp"
	"strings"

	"github.com/emersion/go-message"

	"github.com/emlkit/eml2md/decode"
	"github.com/emlkit/eml2md/model"
)

var tagRE = regexp.MustCompile(`<[^>]+>`)

// Read parses a raw RFC 5322 container. Unknown charsets and transfer
// encodings are tolerated; the affected part bodies stay raw and the
// decode fallback chain deals with them later.
func Read(raw []byte) (*message.Entity, error) {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return nil, err
	}
	return entity, nil
}

// Message flattens one parsed container into a single MessageRecord. Body
// text is the concatenation of all non-attachment text/plain parts; when no
// plain part exists, text/html parts are used instead with tags stripped.
// Embedded message/rfc822 parts contribute their text the same way. The
// function has no side effects and consumes the entity's part bodies.
func Message(entity *message.Entity) model.MessageRecord {
	rec, _ := Container(entity)
	return rec
}

// Container behaves like Message but additionally returns the raw bytes of
// every embedded message/rfc822 part, in document order, for the segmenter.
func Container(entity *message.Entity) (model.MessageRecord, [][]byte) {
	header := entity.Header
	rec := model.MessageRecord{
		From:    decode.Header(header.Get("From")),
		To:      decode.Header(header.Get("To")),
		Cc:      decode.Header(header.Get("Cc")),
		Subject: decode.Header(header.Get("Subject")),
	}
	if raw := header.Get("Date"); raw != "" {
		if t, err := mail.ParseDate(raw); err == nil {
			utc := t.UTC()
			rec.Date = &utc
		}
	}

	c := &collector{}
	c.walk(entity)

	if c.plain.Len() > 0 {
		rec.Body = c.plain.String()
	} else {
		rec.Body = tagRE.ReplaceAllString(c.html.String(), "")
	}
	rec.Attachments = c.attachments
	return rec, c.embedded
}

type collector struct {
	plain       strings.Builder
	html        strings.Builder
	attachments []model.Attachment
	embedded    [][]byte
}

func (c *collector) walk(entity *message.Entity) {
	if mr := entity.MultipartReader(); mr != nil {
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return
			}
			if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
				return
			}
			c.walk(part)
		}
	}

	ctype, ctParams, err := entity.Header.ContentType()
	if err != nil {
		ctype = "text/plain"
	}

	if strings.EqualFold(ctype, "message/rfc822") {
		raw, err := io.ReadAll(entity.Body)
		if err != nil || len(raw) == 0 {
			return
		}
		c.embedded = append(c.embedded, raw)
		if sub, err := Read(raw); err == nil {
			c.walk(sub)
		}
		return
	}

	disposition, dispParams, _ := mime.ParseMediaType(entity.Header.Get("Content-Disposition"))
	attached := strings.EqualFold(disposition, "attachment")

	filename := dispParams["filename"]
	if filename == "" {
		filename = ctParams["name"]
	}

	// Known charsets were already converted to UTF-8 while parsing; parts
	// whose charset conversion failed stay raw, and the empty label sends
	// them down the UTF-8-with-substitution fallback.
	switch {
	case strings.EqualFold(ctype, "text/plain") && !attached:
		if raw, err := io.ReadAll(entity.Body); err == nil {
			c.plain.WriteString(decode.Body(raw, ""))
		}
	case strings.EqualFold(ctype, "text/html") && !attached:
		if raw, err := io.ReadAll(entity.Body); err == nil {
			c.html.WriteString(decode.Body(raw, ""))
		}
	case attached || filename != "":
		if filename == "" {
			return
		}
		content, err := io.ReadAll(entity.Body)
		if err != nil || len(content) == 0 {
			return
		}
		c.attachments = append(c.attachments, model.Attachment{
			Filename:    decode.Header(filename),
			Content:     content,
			ContentType: ctype,
		})
	}
}
