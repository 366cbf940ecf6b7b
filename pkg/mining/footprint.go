package mining

// Relation classifies an activity pair in the footprint matrix.
type Relation uint8

const (
	// RelationNone means neither activity ever directly follows the
	// other.
	RelationNone Relation = iota

	// RelationCausality means a follows b in one direction only.
	RelationCausality

	// RelationParallel means both directions were observed.
	RelationParallel
)

// Footprint is the pairwise relation matrix derived from a DFG.
type Footprint struct {
	dfg *DFG
}

// NewFootprint derives the footprint view of a DFG.
func NewFootprint(dfg *DFG) *Footprint {
	return &Footprint{dfg: dfg}
}

// Relation returns the relation from a to b. Causality is directional:
// Relation(a, b) == RelationCausality means a leads to b.
func (f *Footprint) Relation(a, b string) Relation {
	ab := f.dfg.Follows(a, b)
	ba := f.dfg.Follows(b, a)
	switch {
	case ab && ba:
		return RelationParallel
	case ab:
		return RelationCausality
	default:
		return RelationNone
	}
}

// Causality reports whether a leads to b but never the reverse.
func (f *Footprint) Causality(a, b string) bool {
	return f.dfg.Follows(a, b) && !f.dfg.Follows(b, a)
}

// Parallel reports whether a and b directly follow each other in both
// directions.
func (f *Footprint) Parallel(a, b string) bool {
	return f.dfg.Follows(a, b) && f.dfg.Follows(b, a)
}

// Choice reports whether a and b never directly follow each other.
func (f *Footprint) Choice(a, b string) bool {
	return !f.dfg.Follows(a, b) && !f.dfg.Follows(b, a)
}
