package core

import (
	"fmt"
	"sort"
)

// Op is the comparison operator applied by a hard constraint.
type Op string

const (
	// OpEquals requires the candidate value to equal the constraint value.
	OpEquals Op = "eq"
	// OpAtMost requires a numeric candidate value <= the constraint value.
	OpAtMost Op = "le"
	// OpAtLeast requires a numeric candidate value >= the constraint value.
	OpAtLeast Op = "ge"
	// OpExists requires the key to be present and truthy.
	OpExists Op = "exists"
)

// Constraint is a hard requirement. Every accepted candidate must satisfy all
// hard constraints exactly; they are never relaxed.
type Constraint struct {
	Key   string
	Op    Op
	Value any
}

// Satisfied evaluates the constraint against a candidate payload. Missing
// keys never satisfy a constraint.
func (c Constraint) Satisfied(candidate map[string]any) bool {
	v, ok := candidate[c.Key]
	if !ok {
		return false
	}
	switch c.Op {
	case OpExists:
		b, isBool := v.(bool)
		if isBool {
			return b
		}
		return v != nil
	case OpEquals:
		if fv, fok := toFloat(v); fok {
			if cv, cok := toFloat(c.Value); cok {
				return fv == cv
			}
		}
		return fmt.Sprint(v) == fmt.Sprint(c.Value)
	case OpAtMost:
		fv, fok := toFloat(v)
		cv, cok := toFloat(c.Value)
		return fok && cok && fv <= cv
	case OpAtLeast:
		fv, fok := toFloat(v)
		cv, cok := toFloat(c.Value)
		return fok && cok && fv >= cv
	default:
		return false
	}
}

// Preference declares the ranking direction of a soft constraint.
type Preference string

const (
	// PreferLow ranks lower values higher (price, walking distance).
	PreferLow Preference = "low"
	// PreferHigh ranks higher values higher (rating, availability).
	PreferHigh Preference = "high"
)

// SoftConstraint is a ranking preference. It never disqualifies a candidate;
// it only contributes a weighted component to the candidate's score. Scale
// normalizes the raw value into [0,1] before weighting.
type SoftConstraint struct {
	Key    string
	Weight float64
	Prefer Preference
	Scale  float64
}

func (s SoftConstraint) score(candidate map[string]any) float64 {
	v, ok := candidate[s.Key]
	if !ok {
		return 0
	}
	if b, isBool := v.(bool); isBool {
		if b && s.Prefer == PreferHigh {
			return s.Weight
		}
		if !b && s.Prefer == PreferLow {
			return s.Weight
		}
		return 0
	}
	fv, fok := toFloat(v)
	if !fok {
		return 0
	}
	scale := s.Scale
	if scale <= 0 {
		scale = 1
	}
	var norm float64
	if s.Prefer == PreferLow {
		norm = (scale - fv) / scale
	} else {
		norm = fv / scale
	}
	if norm < 0 {
		norm = 0
	}
	if norm > 1 {
		norm = 1
	}
	return norm * s.Weight
}

// Constraints bundles the hard requirements and soft preferences of a task.
type Constraints struct {
	Hard []Constraint
	Soft []SoftConstraint
}

// HardSatisfied reports whether the candidate meets every hard constraint.
func (cs Constraints) HardSatisfied(candidate map[string]any) bool {
	for _, c := range cs.Hard {
		if !c.Satisfied(candidate) {
			return false
		}
	}
	return true
}

// Score computes the weighted soft-constraint score of a candidate. Hard
// constraints do not participate; callers must filter with HardSatisfied
// first.
func (cs Constraints) Score(candidate map[string]any) float64 {
	var total float64
	for _, s := range cs.Soft {
		total += s.score(candidate)
	}
	return total
}

// RequiredKeys returns the deduplicated, sorted set of keys referenced by
// hard constraints. Guardrail input validation uses it to check the
// constraint set names every key it relies on. The keys describe candidate
// attributes, not payload fields, so callers must not require them in the
// task payload itself.
func (cs Constraints) RequiredKeys() []string {
	seen := map[string]struct{}{}
	for _, c := range cs.Hard {
		seen[c.Key] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	default:
		return 0, false
	}
}
