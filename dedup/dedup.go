// Package dedup detects and merges near-duplicate messages, such as the
// copies of a mail that reappear in every reply of a quoted thread.
package dedup

import (
	"hash/crc32"
	"math/bits"
	"sort"
	"strings"

	"github.com/emlkit/eml2md/model"
)

// DefaultThreshold is the maximum Hamming distance at which two fingerprints
// still count as near-duplicates.
const DefaultThreshold = 8

// Fingerprint computes the SimHash of a record's sender, subject and first
// five non-empty body lines.
func Fingerprint(rec model.MessageRecord) uint64 {
	lines := make([]string, 0, 5)
	for _, line := range strings.Split(rec.Body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == 5 {
			break
		}
	}
	return Hash(rec.From + " " + rec.Subject + " " + strings.Join(lines, " "))
}

// Hash computes a 64-bit SimHash over a text. Features are the lowercased,
// whitespace-collapsed words plus adjacent-word bigrams; each feature's CRC32
// votes on every bit position. Identical text always hashes identically, and
// near-identical text lands within a small Hamming distance. The checksum is
// 32 bits wide, so positions 32-63 never collect a positive vote.
func Hash(text string) uint64 {
	words := strings.Fields(strings.ToLower(text))

	features := make([]string, 0, len(words)*2)
	features = append(features, words...)
	for i := 0; i+1 < len(words); i++ {
		features = append(features, words[i]+" "+words[i+1])
	}

	var acc [64]int
	for _, feature := range features {
		sum := uint64(crc32.ChecksumIEEE([]byte(feature)))
		for i := 0; i < 64; i++ {
			if sum>>uint(i)&1 == 1 {
				acc[i]++
			} else {
				acc[i]--
			}
		}
	}

	var fp uint64
	for i := 0; i < 64; i++ {
		if acc[i] > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}

// Distance is the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Deduplicate merges near-duplicate records, keeping one representative per
// cluster. Records are visited newest first (undated last); each unvisited
// record becomes a representative and absorbs every later record within the
// threshold. The clustering is greedy single-link seeded by recency: a chain
// of pairwise-close records can be absorbed into one representative even when
// its endpoints are further apart than the threshold. Survivors come back in
// visit order; callers re-sort before rendering.
func Deduplicate(records []model.MessageRecord, threshold int) []model.MessageRecord {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if len(records) <= 1 {
		return records
	}

	order := make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return newer(records[order[a]], records[order[b]])
	})

	fingerprints := make([]uint64, len(records))
	for i, rec := range records {
		fingerprints[i] = Fingerprint(rec)
	}

	absorbed := make([]bool, len(records))
	survivors := make([]model.MessageRecord, 0, len(records))
	for i, a := range order {
		if absorbed[a] {
			continue
		}
		survivors = append(survivors, records[a])
		for _, b := range order[i+1:] {
			if absorbed[b] {
				continue
			}
			if Distance(fingerprints[a], fingerprints[b]) <= threshold {
				absorbed[b] = true
			}
		}
	}
	return survivors
}

// newer orders records by date descending with undated records last.
func newer(a, b model.MessageRecord) bool {
	switch {
	case a.Date == nil:
		return false
	case b.Date == nil:
		return true
	default:
		return a.Date.After(*b.Date)
	}
}
