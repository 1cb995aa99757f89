package mdparse

import "strings"

// MetadataBlock renders the note-tool metadata header for one parsed section:
// a fenced key/value block with the reformatted date/time pair, sender, full
// recipient and CC lists as indented items, and the quoted subject. Built
// strictly from the one section it is given.
func MetadataBlock(email Email) string {
	lines := []string{
		"---",
		"email_thread:",
		"aliases: []",
		"type: email",
		"tags:",
		"  - ",
	}

	switch {
	case email.DateOut != "":
		parts := strings.Fields(email.DateOut)
		lines = append(lines, "date: "+parts[0], "time: "+parts[1])
	case email.DateIn != "":
		// Opaque date text: best effort, keep whatever splits out.
		parts := strings.Fields(email.DateIn)
		if len(parts) >= 2 {
			lines = append(lines, "date: "+parts[0], "time: "+parts[1])
		} else {
			lines = append(lines, "date: "+email.DateIn)
		}
	}

	lines = append(lines, "sender: "+email.From)

	lines = append(lines, "to:")
	for _, r := range email.To {
		lines = append(lines, "  - "+r)
	}

	if len(email.Cc) > 0 {
		lines = append(lines, "cc:")
		for _, r := range email.Cc {
			lines = append(lines, "  - "+r)
		}
	}

	subject := strings.ReplaceAll(email.Subject, `"`, `\"`)
	lines = append(lines, `subject: "`+subject+`"`)
	lines = append(lines, "---\n")
	return strings.Join(lines, "\n")
}

// Note renders the metadata block followed by the section's cleaned content,
// ready to paste into a note-taking tool.
func Note(email Email) string {
	return MetadataBlock(email) + strings.TrimRight(email.Content, " \t\r\n") + "\n"
}
