package mining

import (
	"sort"
	"strings"

	"github.com/procsight/procsight/internal/model"
	perrors "github.com/procsight/procsight/pkg/errors"
)

// VariantSeparator joins activities into a variant key.
const VariantSeparator = " -> "

// Variant is one distinct activity sequence and the cases following it.
type Variant struct {
	Sequence []string `json:"sequence"`
	Count    int      `json:"count"`
	Percent  float64  `json:"percent"`
}

// Key returns the joined representation of the sequence.
func (v Variant) Key() string {
	return strings.Join(v.Sequence, VariantSeparator)
}

// Variants groups cases by their activity sequence and returns variants
// ordered by descending frequency, key breaking ties.
func Variants(log *model.Log) ([]Variant, error) {
	if log.Empty() {
		return nil, perrors.EmptyLog("variants")
	}

	counts := make(map[string]int)
	sequences := make(map[string][]string)

	var current []string
	flush := func() {
		if len(current) == 0 {
			return
		}
		key := strings.Join(current, VariantSeparator)
		if _, ok := sequences[key]; !ok {
			seq := make([]string, len(current))
			copy(seq, current)
			sequences[key] = seq
		}
		counts[key]++
		current = current[:0]
	}

	for i := range log.Events {
		if i > 0 && log.Events[i-1].CaseID != log.Events[i].CaseID {
			flush()
		}
		current = append(current, log.Events[i].Activity)
	}
	flush()

	total := 0
	for _, n := range counts {
		total += n
	}

	out := make([]Variant, 0, len(counts))
	for key, n := range counts {
		out = append(out, Variant{
			Sequence: sequences[key],
			Count:    n,
			Percent:  100 * float64(n) / float64(total),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key() < out[j].Key()
	})
	return out, nil
}
