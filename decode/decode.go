// Package decode turns message payloads and header values into UTF-8 text.
// Every function in this package degrades instead of failing: a bad charset
// label or broken encoding falls back step by step until something readable
// comes out.
package decode

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/quotedprintable"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-message/charset"
)

// Body decodes one part's payload using its declared charset. The fallback
// chain is: declared charset, then UTF-8, then UTF-8 with invalid bytes
// substituted. It never fails.
func Body(raw []byte, label string) string {
	if label == "" {
		label = "utf-8"
	}
	if text, ok := tryCharset(raw, label); ok {
		return text
	}
	if utf8.Valid(raw) {
		return string(raw)
	}
	return strings.ToValidUTF8(string(raw), "�")
}

func tryCharset(raw []byte, label string) (string, bool) {
	r, err := charset.Reader(label, bytes.NewReader(raw))
	if err != nil {
		return "", false
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", false
	}
	if !utf8.Valid(decoded) {
		return "", false
	}
	return string(decoded), true
}

var wordDecoder = mime.WordDecoder{
	CharsetReader: func(label string, input io.Reader) (io.Reader, error) {
		return charset.Reader(label, input)
	},
}

// =?charset?b|q?payload?=
var encodedWordRE = regexp.MustCompile(`=\?[^?]+\?[bBqQ]\?[^?]*\?=`)

// Header decodes an RFC 2047 header value. Each encoded word is decoded
// independently with its own declared charset; a word with a broken or
// unknown encoding falls back to UTF-8 with substitution, and if even the
// payload cannot be recovered the word is kept verbatim. An absent header
// decodes to the empty string.
func Header(value string) string {
	if value == "" {
		return ""
	}
	return encodedWordRE.ReplaceAllStringFunc(value, decodeWord)
}

func decodeWord(word string) string {
	if decoded, err := wordDecoder.Decode(word); err == nil {
		return decoded
	}

	parts := strings.SplitN(word, "?", 5)
	if len(parts) != 5 {
		return word
	}

	var (
		payload []byte
		err     error
	)
	switch strings.ToLower(parts[2]) {
	case "b":
		payload, err = base64.StdEncoding.DecodeString(parts[3])
	case "q":
		payload, err = qDecode(parts[3])
	}
	if err != nil || payload == nil {
		return word
	}
	return Body(payload, parts[1])
}

func qDecode(encoded string) ([]byte, error) {
	encoded = strings.ReplaceAll(encoded, "_", " ")
	return io.ReadAll(quotedprintable.NewReader(strings.NewReader(encoded)))
}
