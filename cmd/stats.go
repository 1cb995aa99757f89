package cmd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	mboxlib "github.com/emersion/go-mbox"
	"github.com/spf13/cobra"

	"github.com/emlkit/eml2md/decode"
	"github.com/emlkit/eml2md/extract"
	"github.com/emlkit/eml2md/stats"
)

var headersToTrack = []string{"From", "To", "Subject"}

// NewStatsCommand builds the "stats" subcommand, which scans a directory of
// .eml files or a single mbox archive and reports the most frequent senders,
// recipients and subjects, with CSV reports written alongside.
func NewStatsCommand() *cobra.Command {
	var (
		reportDir string
		topN      int
	)

	cmd := &cobra.Command{
		Use:   "stats [eml directory or mbox file]",
		Short: "Analyse a mailbox and show header statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath := args[0]

			fmt.Println("Analyzing:", inputPath)

			counter := make(map[string]map[string]int)
			for _, h := range headersToTrack {
				counter[h] = make(map[string]int)
			}

			info, err := os.Stat(inputPath)
			if err != nil {
				return fmt.Errorf("stat %s: %w", inputPath, err)
			}

			var count, failed int
			tally := func(raw []byte) {
				entity, err := extract.Read(raw)
				if err != nil {
					failed++
					return
				}
				count++
				for _, headerName := range headersToTrack {
					if value := entity.Header.Get(headerName); value != "" {
						counter[headerName][decode.Header(value)]++
					}
				}
			}

			if info.IsDir() {
				err = scanDir(inputPath, tally)
			} else {
				err = scanMbox(inputPath, tally)
			}
			if err != nil {
				return err
			}

			fmt.Printf("Processed %d messages (%d unreadable)\n\n", count, failed)
			for _, header := range headersToTrack {
				fmt.Printf("Top %d %s:\n", topN, header)
				stats.PrettyPrintTop(counter[header], topN)
				fmt.Println()
			}

			if err := saveCSVReports(counter, headersToTrack, reportDir, 1000); err != nil {
				return fmt.Errorf("error saving CSV reports: %w", err)
			}

			fmt.Printf("Reports saved to directory: %s\n", reportDir)

			return nil
		},
	}

	cmd.Flags().StringVarP(&reportDir, "output", "o", ".", "Output directory for CSV reports")
	cmd.Flags().IntVarP(&topN, "top", "t", 10, "Number of top items to display in statistics")

	return cmd
}

func scanDir(dir string, tally func([]byte)) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".eml") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		tally(raw)
	}

	return nil
}

func scanMbox(path string, tally func([]byte)) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()

	reader := mboxlib.NewReader(file)
	for {
		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("error reading mbox file: %w", err)
		}
		raw, err := io.ReadAll(msgReader)
		if err != nil {
			return fmt.Errorf("error reading mbox message: %w", err)
		}
		tally(raw)
	}
}

func saveCSVReports(counter map[string]map[string]int, headers []string, dir string, limit int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	// Write data for each header category to a separate file
	for _, header := range headers {
		counts := counter[header]

		filename := fmt.Sprintf("report_%s.csv", strings.ToLower(header))
		filePath := filepath.Join(dir, filename)

		file, err := os.Create(filePath)
		if err != nil {
			return err
		}

		writer := csv.NewWriter(file)

		if err := writer.Write([]string{"Value", "Count"}); err != nil {
			file.Close()
			return err
		}

		// Sort by count descending
		type pair struct {
			Key   string
			Value int
		}
		var pairs []pair
		for k, v := range counts {
			pairs = append(pairs, pair{k, v})
		}
		sort.Slice(pairs, func(i, j int) bool {
			return pairs[i].Value > pairs[j].Value
		})

		for i := 0; i < limit && i < len(pairs); i++ {
			record := []string{
				pairs[i].Key,
				strconv.Itoa(pairs[i].Value),
			}
			if err := writer.Write(record); err != nil {
				file.Close()
				return err
			}
		}

		writer.Flush()
		file.Close()

		if err := writer.Error(); err != nil {
			return err
		}
	}

	return nil
}
