package model

import "time"

// Attachment is one file carried by a message: the filename as declared in the
// headers, the raw payload bytes and the declared content type. The filename
// is kept verbatim here; it is sanitized only when used as a path.
type Attachment struct {
	Filename    string
	Content     []byte
	ContentType string
}

// MessageRecord is one logical email: a full container, an embedded
// message/rfc822 part, or a quoted reply carved out of a body.
//
// Date is nil when the source carried no parseable timestamp; it is never a
// malformed value. DateRaw keeps the original text of a quoted-header date
// that even the lenient parser could not handle, so the message is not lost.
type MessageRecord struct {
	Date        *time.Time
	DateRaw     string
	From        string
	To          string
	Cc          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Job is one raw input container queued for conversion. Name is the stem used
// for the output directory and in failure reports. Path is set only for
// inputs that came from a file on disk and can be relocated once processed.
type Job struct {
	Name string
	Path string
	Hash string
	Raw  []byte
}

// Envelope wraps a job alongside an optional error encountered while producing it.
type Envelope struct {
	Job Job
	Err error
}

// Result is one finished conversion handed to the writer stage.
type Result struct {
	Job      Job
	Markdown string
	Records  []MessageRecord
}
