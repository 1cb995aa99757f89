package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/emlkit/eml2md/mdparse"
)

// NewReadCommand builds the "read" subcommand, which parses a rendered
// thread document back into individual emails. Without --index it prints a
// preview of every section; with --index it emits one email as a note with
// a metadata block, ready to be saved into a knowledge base.
func NewReadCommand() *cobra.Command {
	var index int

	cmd := &cobra.Command{
		Use:   "read [markdown file]",
		Short: "Parse a converted thread document back into individual emails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			emails, err := mdparse.Parse(string(doc))
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			if index == 0 {
				printPreview(emails)
				return nil
			}

			if index < 1 || index > len(emails) {
				return fmt.Errorf("index %d out of range, document has %d emails", index, len(emails))
			}

			fmt.Print(mdparse.Note(emails[index-1]))
			return nil
		},
	}

	cmd.Flags().IntVarP(&index, "index", "i", 0, "1-based index of the email to emit as a note (0 lists all)")

	return cmd
}

func printPreview(emails []mdparse.Email) {
	for i, email := range emails {
		date := email.DateOut
		if date == "" {
			date = email.DateIn
		}

		fmt.Printf("[%d] Email %d\n", i+1, email.Number)
		fmt.Printf("    Date:    %s\n", date)
		fmt.Printf("    From:    %s\n", email.From)
		fmt.Printf("    To:      %s\n", mdparse.ShortRecipients(email.To))
		if len(email.Cc) > 0 {
			fmt.Printf("    CC:      %s\n", mdparse.ShortRecipients(email.Cc))
		}
		fmt.Printf("    Subject: %s\n", email.Subject)
		fmt.Printf("    %s\n", mdparse.FirstWords(email.Content, 20))
		fmt.Println(strings.Repeat("-", 70))
	}
	fmt.Printf("%d emails found\n", len(emails))
}
