// Copyright (C) 2022  The reqsrc authors
//
// SPDX-License-Identifier: Apache-2.0

package pep440

import (
	"fmt"
	"strings"
)

// Specifier is a series of version clauses, separated by commas; the comma
// is a logical AND: a candidate version must match every clause in order to
// match the specifier as a whole.
type Specifier []SpecifierClause

// ParseSpecifier parses a version specifier such as ">=1.0,<2.0,!=1.3.4.*".
func ParseSpecifier(str string) (Specifier, error) {
	clauseStrs := strings.FieldsFunc(str, func(r rune) bool { return r == ',' })
	ret := make(Specifier, 0, len(clauseStrs))
	for _, clauseStr := range clauseStrs {
		clauseStr = strings.TrimSpace(clauseStr)
		if clauseStr == "" {
			continue
		}
		clause, err := parseSpecifierClause(clauseStr)
		if err != nil {
			return nil, fmt.Errorf("pep440.ParseSpecifier: %w", err)
		}
		ret = append(ret, clause)
	}
	return ret, nil
}

func MustParseSpecifier(str string) Specifier {
	spec, err := ParseSpecifier(str)
	if err != nil {
		panic(err)
	}
	return spec
}

func (spec Specifier) String() string {
	clauses := make([]string, 0, len(spec))
	for _, clause := range spec {
		clauses = append(clauses, clause.String())
	}
	return strings.Join(clauses, ",")
}

func (spec Specifier) Match(ver Version) bool {
	for _, clause := range spec {
		if !clause.Match(ver) {
			return false
		}
	}
	return true
}

type CmpOp int

const (
	CmpOpCompatible CmpOp = iota // ~=
	CmpOpStrictMatch
	CmpOpPrefixMatch
	CmpOpStrictExclude
	CmpOpPrefixExclude
	CmpOpLE
	CmpOpGE
	CmpOpLT
	CmpOpGT
)

func (op CmpOp) String() string {
	str, ok := map[CmpOp]string{
		CmpOpCompatible:    "~=",
		CmpOpStrictMatch:   "strict ==",
		CmpOpPrefixMatch:   "prefix ==",
		CmpOpStrictExclude: "strict !=",
		CmpOpPrefixExclude: "prefix !=",
		CmpOpLE:            "<=",
		CmpOpGE:            ">=",
		CmpOpLT:            "<",
		CmpOpGT:            ">",
	}[op]
	if !ok {
		panic(fmt.Errorf("invalid CmpOp: %d", op))
	}
	return str
}

type SpecifierClause struct {
	CmpOp   CmpOp
	Version Version
}

//nolint:gocognit // linear case analysis over the operator set
func parseSpecifierClause(str string) (SpecifierClause, error) {
	var ret SpecifierClause
	str = strings.TrimSpace(str)
	minSegments := 1
	devOK := true
	localOK := false
	switch {
	case strings.HasPrefix(str, "~="):
		ret.CmpOp = CmpOpCompatible
		str = str[2:]
		minSegments = 2
	case strings.HasPrefix(str, "==") && !strings.HasPrefix(str, "==="):
		ret.CmpOp = CmpOpStrictMatch
		str = str[2:]
		localOK = true
		if strings.HasSuffix(str, ".*") {
			ret.CmpOp = CmpOpPrefixMatch
			str = strings.TrimSuffix(str, ".*")
			devOK = false
			localOK = false
		}
	case strings.HasPrefix(str, "!="):
		ret.CmpOp = CmpOpStrictExclude
		str = str[2:]
		localOK = true
		if strings.HasSuffix(str, ".*") {
			ret.CmpOp = CmpOpPrefixExclude
			str = strings.TrimSuffix(str, ".*")
			devOK = false
			localOK = false
		}
	case strings.HasPrefix(str, "<="):
		ret.CmpOp = CmpOpLE
		str = str[2:]
	case strings.HasPrefix(str, ">="):
		ret.CmpOp = CmpOpGE
		str = str[2:]
	case strings.HasPrefix(str, "<"):
		ret.CmpOp = CmpOpLT
		str = str[1:]
	case strings.HasPrefix(str, ">"):
		ret.CmpOp = CmpOpGT
		str = str[1:]
	case strings.HasPrefix(str, "==="):
		return ret, fmt.Errorf("specifiers with === are not supported; versions must be PEP 440 compliant")
	default:
		return ret, fmt.Errorf("invalid comparison operator: %q", str)
	}
	ver, err := ParseVersion(str)
	if err != nil {
		return ret, err
	}
	if len(ver.Release) < minSegments {
		return ret, fmt.Errorf("at least %d release segments required in %s specifier clauses",
			minSegments, ret.CmpOp)
	}
	if ver.Dev != nil && !devOK {
		return ret, fmt.Errorf("dev-part not permitted in %s specifier clauses", ret.CmpOp)
	}
	if len(ver.Local) > 0 && !localOK {
		return ret, fmt.Errorf("local-part not permitted in %s specifier clauses", ret.CmpOp)
	}
	ret.Version = *ver
	return ret, nil
}

func (spec SpecifierClause) String() string {
	switch spec.CmpOp {
	case CmpOpCompatible:
		return "~=" + spec.Version.String()
	case CmpOpStrictMatch:
		return "==" + spec.Version.String()
	case CmpOpPrefixMatch:
		return "==" + spec.Version.String() + ".*"
	case CmpOpStrictExclude:
		return "!=" + spec.Version.String()
	case CmpOpPrefixExclude:
		return "!=" + spec.Version.String() + ".*"
	case CmpOpLE:
		return "<=" + spec.Version.String()
	case CmpOpGE:
		return ">=" + spec.Version.String()
	case CmpOpLT:
		return "<" + spec.Version.String()
	case CmpOpGT:
		return ">" + spec.Version.String()
	default:
		panic(fmt.Errorf("invalid CmpOp: %d", spec.CmpOp))
	}
}

func (spec SpecifierClause) Match(ver Version) bool {
	switch spec.CmpOp {
	case CmpOpCompatible:
		return matchCompatible(spec.Version, ver)
	case CmpOpStrictMatch:
		return matchStrictMatch(spec.Version, ver)
	case CmpOpPrefixMatch:
		return matchPrefixMatch(spec.Version, ver)
	case CmpOpStrictExclude:
		return !matchStrictMatch(spec.Version, ver)
	case CmpOpPrefixExclude:
		return !matchPrefixMatch(spec.Version, ver)
	case CmpOpLE:
		return spec.Version.Cmp(ver) >= 0
	case CmpOpGE:
		return spec.Version.Cmp(ver) <= 0
	case CmpOpLT:
		return spec.Version.Cmp(ver) > 0
	case CmpOpGT:
		return spec.Version.Cmp(ver) < 0
	default:
		panic(fmt.Errorf("invalid CmpOp: %d", spec.CmpOp))
	}
}

// matchCompatible implements the "~= V.N" compatible release clause, which
// is approximately equivalent to the pair of clauses ">= V.N, == V.*".
func matchCompatible(spec, ver Version) bool {
	prefix := spec
	prefix.Release = prefix.Release[:len(prefix.Release)-1]
	prefix.Pre = nil
	prefix.Post = nil
	prefix.Dev = nil
	return spec.Cmp(ver) <= 0 && matchPrefixMatch(prefix, ver)
}

// matchStrictMatch ignores the candidate's local version label unless the
// specified version itself carries one.
func matchStrictMatch(spec, ver Version) bool {
	if len(spec.Local) == 0 {
		return spec.CmpPublic(ver) == 0
	}
	return spec.Cmp(ver) == 0
}

// matchPrefixMatch implements "== V.*": trailing segments of the candidate
// beyond the specified prefix are ignored.
func matchPrefixMatch(spec, ver Version) bool {
	if spec.Epoch != ver.Epoch {
		return false
	}

	terminalRelease := spec.Pre == nil && spec.Post == nil
	if terminalRelease {
		if len(ver.Release) > len(spec.Release) {
			ver.Release = ver.Release[:len(spec.Release)]
		}
		return cmpRelease(spec, ver) == 0
	}
	if cmpRelease(spec, ver) != 0 {
		return false
	}

	// The pre-release part is compared directly rather than through
	// cmpPreRelease, because cmpPreRelease also takes .Post and .Dev into
	// account.
	if (ver.Pre == nil) != (spec.Pre == nil) {
		return false
	}
	if spec.Pre != nil && (ver.Pre.L != spec.Pre.L || ver.Pre.N != spec.Pre.N) {
		return false
	}
	if spec.Post == nil {
		return true
	}
	return cmpPostRelease(spec, ver) == 0
}

// ExclusionBehavior controls which candidate versions Select may pick
// outright, per the PEP 440 "Handling of pre-releases" rules.
type ExclusionBehavior interface {
	Allow(Version) bool
}

// AllowAll is an implementation of ExclusionBehavior.
type AllowAll struct{}

func (AllowAll) Allow(_ Version) bool { return true }

// ExcludePreReleases is an implementation of ExclusionBehavior that rejects
// pre-releases and developmental releases, except those on its AllowList.
type ExcludePreReleases struct {
	AllowList []Version
}

func (prereleases ExcludePreReleases) Allow(ver Version) bool {
	if !ver.IsPreRelease() {
		return true
	}
	for _, item := range prereleases.AllowList {
		if item.Cmp(ver) == 0 {
			return true
		}
	}
	return false
}

// Select returns the preferred version among choices: the latest matching
// version allowed by exclusionBehavior, falling back to the latest matching
// excluded version if nothing else satisfies the specifier, or nil if no
// choice matches at all.
func (spec Specifier) Select(choices []Version, exclusionBehavior ExclusionBehavior) *Version {
	var best *Version
	var bestExcluded *Version
	for _, choice := range choices {
		if !spec.Match(choice) {
			continue
		}
		if exclusionBehavior == nil || exclusionBehavior.Allow(choice) {
			if best == nil || best.Cmp(choice) < 0 {
				val := choice
				best = &val
			}
		} else {
			if bestExcluded == nil || bestExcluded.Cmp(choice) < 0 {
				val := choice
				bestExcluded = &val
			}
		}
	}
	if best != nil {
		return best
	}
	return bestExcluded
}
