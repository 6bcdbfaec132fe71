// Copyright (C) 2022  The reqsrc authors
//
// SPDX-License-Identifier: Apache-2.0

// Package ordered provides insertion-ordered duplicate-free collections.
package ordered

// StringSet is a sequence of unique strings that preserves insertion order.
// The zero value is not usable; use NewStringSet.
type StringSet struct {
	items   []string
	members map[string]struct{}
}

func NewStringSet(items ...string) *StringSet {
	set := &StringSet{
		members: make(map[string]struct{}, len(items)),
	}
	set.AddAll(items...)
	return set
}

// Add inserts item at the end of the sequence; it reports whether the item
// was not already a member.
func (set *StringSet) Add(item string) bool {
	if _, ok := set.members[item]; ok {
		return false
	}
	set.members[item] = struct{}{}
	set.items = append(set.items, item)
	return true
}

func (set *StringSet) AddAll(items ...string) {
	for _, item := range items {
		set.Add(item)
	}
}

func (set *StringSet) Has(item string) bool {
	_, ok := set.members[item]
	return ok
}

// Union inserts all members of other, preserving other's order for items not
// already present.
func (set *StringSet) Union(other *StringSet) {
	if other == nil {
		return
	}
	set.AddAll(other.items...)
}

// Items returns the members in insertion order.  The returned slice must not
// be mutated.
func (set *StringSet) Items() []string {
	if set == nil {
		return nil
	}
	return set.items
}

func (set *StringSet) Len() int {
	if set == nil {
		return 0
	}
	return len(set.items)
}
