package gaps

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"knowledge-backend/internal/analysis"
)

// Fingerprint derives the stable dedup identity of a candidate gap.
// Same tenant, same category, same normalized title, same evidence
// documents => same fingerprint, across runs and strategies.
func Fingerprint(tenantID, category, title string, evidence []analysis.Evidence) string {
	h := sha256.New()
	normCat, ok := analysis.NormalizeCategory(category)
	if !ok {
		normCat = strings.ToLower(strings.TrimSpace(category))
	}
	h.Write([]byte(tenantID))
	h.Write([]byte{0})
	h.Write([]byte(normCat))
	h.Write([]byte{0})
	h.Write([]byte(NormalizeTitle(title)))
	h.Write([]byte{0})
	h.Write([]byte(evidenceSignature(evidence)))
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeTitle lowercases, strips punctuation and collapses runs of
// whitespace so cosmetic rephrasings land on the same fingerprint.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	lastSpace := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// evidenceSignature is the sorted set of distinct evidence document IDs.
// Quote text is deliberately excluded: the same gap cited with different
// quotes from the same documents is still the same gap.
func evidenceSignature(evidence []analysis.Evidence) string {
	seen := make(map[string]bool, len(evidence))
	ids := make([]string, 0, len(evidence))
	for _, ev := range evidence {
		if ev.DocumentID == "" || seen[ev.DocumentID] {
			continue
		}
		seen[ev.DocumentID] = true
		ids = append(ids, ev.DocumentID)
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}
