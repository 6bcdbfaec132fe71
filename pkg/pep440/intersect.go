// Copyright (C) 2022  The reqsrc authors
//
// SPDX-License-Identifier: Apache-2.0

package pep440

import (
	"fmt"
)

// UnsatisfiableError is returned by Intersect when the combined version
// range is empty.
type UnsatisfiableError struct {
	Specifier Specifier
}

func (e *UnsatisfiableError) Error() string {
	return fmt.Sprintf("unsatisfiable version constraint: %q", e.Specifier.String())
}

// Intersect combines two specifiers into a single specifier describing the
// logical overlap of their version ranges: a candidate version matches the
// result if and only if it matches both inputs.  Redundant ordered clauses
// are dropped (">=1,<3" ∧ ">=2,<4" gives ">=2,<3").  If the overlap is
// provably empty, Intersect returns an *UnsatisfiableError instead of
// silently producing a specifier that nothing can match.
func Intersect(a, b Specifier) (Specifier, error) {
	combined := make(Specifier, 0, len(a)+len(b))
	combined = append(combined, a...)
	combined = append(combined, b...)
	return simplify(combined)
}

// bound is a one-sided version range limit derived from an ordered clause
// (or shadowed from a ~= / prefix-match clause for emptiness checking).
type bound struct {
	version   Version
	exclusive bool
}

// tighterLower reports whether x constrains the lower end of the range more
// than y does.
func tighterLower(x, y bound) bool {
	if d := x.version.Cmp(y.version); d != 0 {
		return d > 0
	}
	return x.exclusive && !y.exclusive
}

// tighterUpper reports whether x constrains the upper end of the range more
// than y does.
func tighterUpper(x, y bound) bool {
	if d := x.version.Cmp(y.version); d != 0 {
		return d < 0
	}
	return x.exclusive && !y.exclusive
}

// prefixBounds approximates a release-prefix constraint ("== V.*", or the
// prefix half of "~= V.N") as the half-open range [V, V+1): good enough for
// emptiness detection, though not for candidate matching.
func prefixBounds(prefix Version) (lower, upper bound) {
	lower = bound{version: prefix}
	bumped := Version{Epoch: prefix.Epoch, Release: make([]int, len(prefix.Release))}
	copy(bumped.Release, prefix.Release)
	bumped.Release[len(bumped.Release)-1]++
	upper = bound{version: bumped, exclusive: true}
	return lower, upper
}

//nolint:gocognit // two-phase fold: classify clauses, then validate bounds
func simplify(combined Specifier) (Specifier, error) {
	var pins, compatibles, prefixes, excludes Specifier
	var lower, upper *SpecifierClause // tightest ordered clauses, for output
	var effLower, effUpper *bound     // tightest effective bounds, for emptiness
	seen := make(map[string]struct{}) // dedup by rendered clause

	narrowLower := func(b bound) {
		if effLower == nil || tighterLower(b, *effLower) {
			effLower = &b
		}
	}
	narrowUpper := func(b bound) {
		if effUpper == nil || tighterUpper(b, *effUpper) {
			effUpper = &b
		}
	}

	for _, clause := range combined {
		key := clause.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		switch clause.CmpOp {
		case CmpOpStrictMatch:
			pins = append(pins, clause)
		case CmpOpCompatible:
			compatibles = append(compatibles, clause)
			narrowLower(bound{version: clause.Version})
			prefix := clause.Version
			prefix.Release = prefix.Release[:len(prefix.Release)-1]
			prefix.Pre, prefix.Post, prefix.Dev = nil, nil, nil
			_, pu := prefixBounds(prefix)
			narrowUpper(pu)
		case CmpOpPrefixMatch:
			prefixes = append(prefixes, clause)
			pl, pu := prefixBounds(clause.Version)
			narrowLower(pl)
			narrowUpper(pu)
		case CmpOpStrictExclude, CmpOpPrefixExclude:
			excludes = append(excludes, clause)
		case CmpOpGE:
			narrowLower(bound{version: clause.Version})
			if lower == nil || tighterLower(bound{version: clause.Version}, orderedBound(*lower)) {
				c := clause
				lower = &c
			}
		case CmpOpGT:
			narrowLower(bound{version: clause.Version, exclusive: true})
			if lower == nil || tighterLower(bound{version: clause.Version, exclusive: true}, orderedBound(*lower)) {
				c := clause
				lower = &c
			}
		case CmpOpLE:
			narrowUpper(bound{version: clause.Version})
			if upper == nil || tighterUpper(bound{version: clause.Version}, orderedBound(*upper)) {
				c := clause
				upper = &c
			}
		case CmpOpLT:
			narrowUpper(bound{version: clause.Version, exclusive: true})
			if upper == nil || tighterUpper(bound{version: clause.Version, exclusive: true}, orderedBound(*upper)) {
				c := clause
				upper = &c
			}
		}
	}

	ret := make(Specifier, 0, len(combined))
	ret = append(ret, compatibles...)
	ret = append(ret, pins...)
	ret = append(ret, prefixes...)
	if lower != nil {
		ret = append(ret, *lower)
	}
	if upper != nil {
		ret = append(ret, *upper)
	}
	ret = append(ret, excludes...)

	// The range is empty when the effective lower bound passes the
	// effective upper bound.
	if effLower != nil && effUpper != nil {
		if d := effLower.version.Cmp(effUpper.version); d > 0 ||
			(d == 0 && (effLower.exclusive || effUpper.exclusive)) {
			return nil, &UnsatisfiableError{Specifier: ret}
		}
	}
	// Every pinned version must still match the specifier as a whole;
	// this catches conflicting pins and pins outside the bounds.
	for _, pin := range pins {
		if !ret.Match(pin.Version) {
			return nil, &UnsatisfiableError{Specifier: ret}
		}
	}

	return ret, nil
}

func orderedBound(clause SpecifierClause) bound {
	return bound{
		version:   clause.Version,
		exclusive: clause.CmpOp == CmpOpGT || clause.CmpOp == CmpOpLT,
	}
}
