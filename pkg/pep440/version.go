// Copyright (C) 2022  The reqsrc authors
//
// SPDX-License-Identifier: Apache-2.0

// Package pep440 implements the PEP 440 version scheme and version
// specifiers, plus the specifier-intersection operation that requirement
// merging is built on.
//
// https://www.python.org/dev/peps/pep-0440/
package pep440

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/util/intstr"
)

// Version is a parsed PEP 440 version identifier.
//
// A version identifier is separated into up to six segments: an epoch
// ("N!"), a release ("N(.N)*"), a pre-release ("{a|b|rc}N"), a post-release
// (".postN"), a developmental release (".devN"), and a local version label
// ("+local").
type Version struct {
	Epoch   int
	Release []int
	Pre     *PreRelease
	Post    *int
	Dev     *int
	Local   []intstr.IntOrString
}

type PreRelease struct {
	L string
	N int
}

// The permissive pattern from PEP 440 "Appendix B: Parsing version strings
// with regular expressions"; inputs matching it may still require
// normalization.
//nolint:lll
var reVersion = regexp.MustCompile(`(?i)^\s*v?` +
	`(?:(?P<epoch>[0-9]+)!)?` +
	`(?P<release>[0-9]+(?:\.[0-9]+)*)` +
	`(?:[-_.]?(?P<preL>a|b|c|rc|alpha|beta|pre|preview)[-_.]?(?P<preN>[0-9]+)?)?` +
	`(?:(?:-(?P<postN1>[0-9]+))|(?:[-_.]?(?P<postL>post|rev|r)[-_.]?(?P<postN2>[0-9]+)?))?` +
	`(?:[-_.]?(?P<devL>dev)[-_.]?(?P<devN>[0-9]+)?)?` +
	`(?:\+(?P<local>[a-z0-9]+(?:[-_.][a-z0-9]+)*))?` +
	`\s*$`)

//nolint:gochecknoglobals // Would be 'const'.
var preReleaseAliases = map[string]string{
	"a": "a", "alpha": "a",
	"b": "b", "beta": "b",
	"rc": "rc", "c": "rc", "pre": "rc", "preview": "rc",
}

// ParseVersion parses a version identifier, performing the normalizations
// that PEP 440 requires of parsers ("1.0.RC1" parses the same as "1.0rc1").
func ParseVersion(str string) (*Version, error) {
	match := reVersion.FindStringSubmatch(str)
	if match == nil {
		return nil, fmt.Errorf("pep440.ParseVersion: invalid version: %q", str)
	}
	group := func(name string) string {
		return match[reVersion.SubexpIndex(name)]
	}

	var ver Version
	if epoch := group("epoch"); epoch != "" {
		n, err := strconv.Atoi(epoch)
		if err != nil {
			return nil, fmt.Errorf("pep440.ParseVersion: %w", err)
		}
		ver.Epoch = n
	}
	for _, seg := range strings.Split(group("release"), ".") {
		n, err := strconv.Atoi(seg)
		if err != nil {
			return nil, fmt.Errorf("pep440.ParseVersion: %w", err)
		}
		ver.Release = append(ver.Release, n)
	}
	if l := group("preL"); l != "" {
		pre := PreRelease{L: preReleaseAliases[strings.ToLower(l)]}
		if n := group("preN"); n != "" {
			pre.N, _ = strconv.Atoi(n)
		}
		ver.Pre = &pre
	}
	if n1 := group("postN1"); n1 != "" || group("postL") != "" {
		post := 0
		if n := n1 + group("postN2"); n != "" {
			post, _ = strconv.Atoi(n)
		}
		ver.Post = &post
	}
	if group("devL") != "" {
		dev := 0
		if n := group("devN"); n != "" {
			dev, _ = strconv.Atoi(n)
		}
		ver.Dev = &dev
	}
	for _, part := range strings.FieldsFunc(group("local"), func(r rune) bool {
		return r == '-' || r == '_' || r == '.'
	}) {
		ver.Local = append(ver.Local, intstr.Parse(strings.ToLower(part)))
	}
	return &ver, nil
}

func MustParseVersion(str string) Version {
	ver, err := ParseVersion(str)
	if err != nil {
		panic(err)
	}
	return *ver
}

// String renders the normalized form of the version.
func (ver Version) String() string {
	var ret strings.Builder
	if ver.Epoch > 0 {
		fmt.Fprintf(&ret, "%d!", ver.Epoch)
	}
	if len(ver.Release) == 0 {
		panic("invalid version: no release segments")
	}
	fmt.Fprintf(&ret, "%d", ver.Release[0])
	for _, seg := range ver.Release[1:] {
		fmt.Fprintf(&ret, ".%d", seg)
	}
	if ver.Pre != nil {
		fmt.Fprintf(&ret, "%s%d", ver.Pre.L, ver.Pre.N)
	}
	if ver.Post != nil {
		fmt.Fprintf(&ret, ".post%d", *ver.Post)
	}
	if ver.Dev != nil {
		fmt.Fprintf(&ret, ".dev%d", *ver.Dev)
	}
	sep := "+"
	for _, local := range ver.Local {
		ret.WriteString(sep)
		ret.WriteString(local.String())
		sep = "."
	}
	return ret.String()
}

// IsFinal reports whether the version consists solely of an epoch and a
// release segment.
func (ver Version) IsFinal() bool {
	return ver.Pre == nil && ver.Post == nil && ver.Dev == nil && len(ver.Local) == 0
}

// IsPreRelease reports whether the version is a pre-release or a
// developmental release.
func (ver Version) IsPreRelease() bool {
	return ver.Pre != nil || ver.Dev != nil
}

//nolint:gochecknoglobals // Would be 'const'.
var preReleaseOrder = map[string]int{
	"a":  -3,
	"b":  -2,
	"rc": -1,
	// absent: 0,
}

func (ver Version) releaseSegment(n int) int {
	if n < len(ver.Release) {
		return ver.Release[n]
	}
	return 0
}

func cmpRelease(a, b Version) int {
	for i := 0; i < len(a.Release) || i < len(b.Release); i++ {
		if d := a.releaseSegment(i) - b.releaseSegment(i); d != 0 {
			return d
		}
	}
	return 0
}

// cmpPreRelease orders the pre-release segment, treating a bare
// developmental release ("1.0.dev1") as sorting before any pre-release of
// the same release segment.
func cmpPreRelease(a, b Version) int {
	var aL, aN, bL, bN int
	if a.Pre != nil {
		aL, aN = preReleaseOrder[a.Pre.L], a.Pre.N
	} else if a.Dev != nil && a.Post == nil {
		aL = -4
	}
	if b.Pre != nil {
		bL, bN = preReleaseOrder[b.Pre.L], b.Pre.N
	} else if b.Dev != nil && b.Post == nil {
		bL = -4
	}
	if aL != bL {
		return aL - bL
	}
	return aN - bN
}

func cmpPostRelease(a, b Version) int {
	aPost, bPost := -1, -1
	if a.Post != nil {
		aPost = *a.Post
	}
	if b.Post != nil {
		bPost = *b.Post
	}
	return aPost - bPost
}

func cmpDevRelease(a, b Version) int {
	switch {
	case a.Dev == nil && b.Dev == nil:
		return 0
	case a.Dev == nil:
		return 1
	case b.Dev == nil:
		return -1
	default:
		return (*a.Dev) - (*b.Dev)
	}
}

// Local version segments compare numerically when both are numeric,
// lexicographically when both are strings; a numeric segment always compares
// greater than a string segment, and a present segment greater than an
// absent one.
func cmpLocalSegment(a, b *intstr.IntOrString) int {
	switch {
	case a == nil:
		return -1
	case b == nil:
		return 1
	case a.Type == intstr.Int && b.Type == intstr.Int:
		return int(a.IntVal - b.IntVal)
	case a.Type == intstr.String && b.Type == intstr.String:
		return strings.Compare(a.StrVal, b.StrVal)
	case a.Type == intstr.Int:
		return 1
	default:
		return -1
	}
}

func cmpLocal(a, b Version) int {
	for i := 0; i < len(a.Local) || i < len(b.Local); i++ {
		var aSeg, bSeg *intstr.IntOrString
		if i < len(a.Local) {
			aSeg = &a.Local[i]
		}
		if i < len(b.Local) {
			bSeg = &b.Local[i]
		}
		if d := cmpLocalSegment(aSeg, bSeg); d != 0 {
			return d
		}
	}
	return 0
}

// CmpPublic is Cmp restricted to the public version identifier; the local
// version label is ignored.
func (a Version) CmpPublic(b Version) int {
	if d := a.Epoch - b.Epoch; d != 0 {
		return d
	}
	if d := cmpRelease(a, b); d != 0 {
		return d
	}
	if d := cmpPreRelease(a, b); d != 0 {
		return d
	}
	if d := cmpPostRelease(a, b); d != 0 {
		return d
	}
	return cmpDevRelease(a, b)
}

// Cmp returns a number < 0 if version 'a' is less than version 'b', > 0 if
// 'a' is greater than 'b', or 0 if they are equal.  Only the sign is
// defined; the magnitude may be anything.
func (a Version) Cmp(b Version) int {
	if d := a.CmpPublic(b); d != 0 {
		return d
	}
	return cmpLocal(a, b)
}
