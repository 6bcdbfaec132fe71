// Copyright (C) 2022  The reqsrc authors
//
// SPDX-License-Identifier: Apache-2.0

// Package testutil has assertion helpers shared by the other packages'
// tests.
package testutil

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"
)

var spewConfig = spew.ConfigState{
	Indent:                  "  ",
	DisableMethods:          true,
	DisableCapacities:       true,
	DisablePointerAddresses: true,
	SortKeys:                true,
}

// Dump renders a value in a stable, address-free form, so that two dumps
// of equal values are byte-identical.
func Dump(val interface{}) string {
	return spewConfig.Sdump(val)
}

// AssertEqualText compares two multi-line strings and reports a unified
// diff on mismatch, which reads much better than testify's one-line quoted
// output for file-sized strings.
func AssertEqualText(t *testing.T, exp, act string) bool {
	t.Helper()
	if exp == act {
		return true
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(exp),
		B:        difflib.SplitLines(act),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  3,
	})
	t.Errorf("Text diff:\n%s", diff)
	return false
}

// AssertEqual is AssertEqualText over Dump, for comparing structured
// values whose mismatches are easier to read as a diff.
func AssertEqual(t *testing.T, exp, act interface{}) bool {
	t.Helper()
	return AssertEqualText(t, Dump(exp), Dump(act))
}
