package strategy

import "sort"

// CodeSet is a set of stock codes
type CodeSet map[string]struct{}

// NewCodeSet builds a set from codes
func NewCodeSet(codes ...string) CodeSet {
	s := make(CodeSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

// Has reports membership
func (s CodeSet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// Intersect returns the codes in both s and o
func (s CodeSet) Intersect(o CodeSet) CodeSet {
	out := make(CodeSet)
	for c := range s {
		if o.Has(c) {
			out[c] = struct{}{}
		}
	}
	return out
}

// Union returns the codes in s or o
func (s CodeSet) Union(o CodeSet) CodeSet {
	out := make(CodeSet, len(s)+len(o))
	for c := range s {
		out[c] = struct{}{}
	}
	for c := range o {
		out[c] = struct{}{}
	}
	return out
}

// Sorted returns the codes in ascending order
func (s CodeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Combine folds sets with mode. No sets yields an empty set.
func Combine(sets []CodeSet, mode Mode) CodeSet {
	if len(sets) == 0 {
		return CodeSet{}
	}
	acc := sets[0].Union(nil)
	for _, s := range sets[1:] {
		if mode == ModeAnd {
			acc = acc.Intersect(s)
		} else {
			acc = acc.Union(s)
		}
	}
	return acc
}

// AtLeast keeps codes present in at least n of sets
func AtLeast(sets []CodeSet, n int) CodeSet {
	hits := make(map[string]int)
	for _, s := range sets {
		for c := range s {
			hits[c]++
		}
	}
	out := make(CodeSet)
	for c, k := range hits {
		if k >= n {
			out[c] = struct{}{}
		}
	}
	return out
}
