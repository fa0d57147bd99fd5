package geocode

import (
	"strings"

	"github.com/rehabdir/rehabdir/internal/model"
)

// Candidates builds the ordered query list for one record, most to least
// specific:
//
//  1. full address ("12 Main St, Sampletown, NSW 2000, Australia")
//  2. postcode + country ("2000, Australia")
//  3. suburb + state + postcode + country ("Sampletown, NSW 2000, Australia")
//
// Blank components collapse rather than leaving dangling separators, and
// duplicate formulations are removed while preserving order, so a sparse
// record yields fewer (possibly zero) candidates instead of junk queries.
func Candidates(p model.Provider) []string {
	var out []string
	seen := make(map[string]bool)

	add := func(q string) {
		q = model.CollapseSpace(q)
		if q == "" || q == model.Country || seen[q] {
			return
		}
		seen[q] = true
		out = append(out, q)
	}

	add(p.FullAddress())
	add(joinParts(p.Postcode, model.Country))
	add(joinParts(strings.TrimSpace(p.Suburb), strings.TrimSpace(p.State+" "+p.Postcode), model.Country))

	return out
}

// joinParts joins non-empty parts with ", ".
func joinParts(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	return strings.Join(nonEmpty, ", ")
}
