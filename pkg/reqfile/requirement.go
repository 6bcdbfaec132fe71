// Copyright (C) 2022  The reqsrc authors
//
// SPDX-License-Identifier: Apache-2.0

package reqfile

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/reqsrc/reqsrc/pkg/pep440"
	"github.com/reqsrc/reqsrc/pkg/pep503"
)

// Requirement is a resolved requirement: a project name plus either a
// version specifier or a direct URL reference.
type Requirement struct {
	// Name is the display name, as the index or the user spells it.
	Name      string
	Extras    []string
	Specifier pep440.Specifier
	// URL is set for direct references ("name @ url"); Specifier is empty
	// in that case.
	URL string
	// Marker is an environment marker, carried verbatim.
	Marker string
}

// Key returns the canonical name the requirement is unique by.
func (req *Requirement) Key() string {
	return pep503.NormalizeName(req.Name)
}

func (req *Requirement) String() string {
	var ret strings.Builder
	ret.WriteString(req.Name)
	if len(req.Extras) > 0 {
		ret.WriteString("[")
		ret.WriteString(strings.Join(req.Extras, ","))
		ret.WriteString("]")
	}
	switch {
	case req.URL != "":
		ret.WriteString(" @ ")
		ret.WriteString(req.URL)
	default:
		ret.WriteString(req.Specifier.String())
	}
	if req.Marker != "" {
		ret.WriteString(" ; ")
		ret.WriteString(req.Marker)
	}
	return ret.String()
}

var reRequirement = regexp.MustCompile(`^([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)\s*(\[[^]]*\])?\s*(.*)$`)

// ParseRequirement parses a single requirement line, such as
// "Flask[async]>=1.0,<2.0", "pkg @ file:///src/pkg", or "six ; python_version < \"3\"".
func ParseRequirement(line string) (*Requirement, error) {
	line = strings.TrimSpace(line)

	var req Requirement
	if idx := strings.Index(line, ";"); idx >= 0 {
		req.Marker = strings.TrimSpace(line[idx+1:])
		line = strings.TrimSpace(line[:idx])
	}

	match := reRequirement.FindStringSubmatch(line)
	if match == nil {
		return nil, fmt.Errorf("invalid requirement: %q", line)
	}
	req.Name = match[1]
	if extras := match[2]; extras != "" {
		for _, extra := range strings.Split(strings.Trim(extras, "[]"), ",") {
			extra = strings.TrimSpace(extra)
			if extra != "" {
				req.Extras = append(req.Extras, extra)
			}
		}
	}
	rest := strings.TrimSpace(match[3])
	switch {
	case rest == "":
		// no constraint
	case strings.HasPrefix(rest, "@"):
		req.URL = strings.TrimSpace(rest[1:])
		if req.URL == "" {
			return nil, fmt.Errorf("invalid requirement: %q: empty URL", line)
		}
	default:
		spec, err := pep440.ParseSpecifier(rest)
		if err != nil {
			return nil, fmt.Errorf("invalid requirement: %q: %w", line, err)
		}
		req.Specifier = spec
	}
	return &req, nil
}

// RequirementSet is an insertion-ordered collection of requirements.  Unlike
// a map keyed by canonical name, it tolerates multiple entries per key; the
// resolver's intersection pass is what reduces each key back to a single
// entry.
type RequirementSet struct {
	entries []*Requirement
}

func NewRequirementSet(reqs ...*Requirement) *RequirementSet {
	set := &RequirementSet{}
	for _, req := range reqs {
		set.Add(req)
	}
	return set
}

// Add appends req unless an identical entry (same rendered line) is already
// present.
func (set *RequirementSet) Add(req *Requirement) {
	line := req.String()
	for _, have := range set.entries {
		if have.String() == line {
			return
		}
	}
	set.entries = append(set.entries, req)
}

// Union adds all of other's entries, preserving other's order for entries
// not already present.
func (set *RequirementSet) Union(other *RequirementSet) {
	if other == nil {
		return
	}
	for _, req := range other.entries {
		set.Add(req)
	}
}

// Items returns the entries in insertion order.  The returned slice must not
// be mutated.
func (set *RequirementSet) Items() []*Requirement {
	if set == nil {
		return nil
	}
	return set.entries
}

func (set *RequirementSet) Len() int {
	if set == nil {
		return 0
	}
	return len(set.entries)
}

// Get returns the first entry whose canonical name is key, or nil.
func (set *RequirementSet) Get(key string) *Requirement {
	if set == nil {
		return nil
	}
	for _, req := range set.entries {
		if req.Key() == key {
			return req
		}
	}
	return nil
}

// GroupByKey partitions the entries by canonical name, preserving insertion
// order both of the keys and of the entries within a key.
func (set *RequirementSet) GroupByKey() (keys []string, groups map[string][]*Requirement) {
	groups = make(map[string][]*Requirement)
	if set == nil {
		return nil, groups
	}
	for _, req := range set.entries {
		key := req.Key()
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], req)
	}
	return keys, groups
}
