package scaffold_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqsrc/reqsrc/pkg/ordered"
	"github.com/reqsrc/reqsrc/pkg/scaffold"
)

var testTimestamp = time.Date(2022, time.March, 4, 5, 6, 7, 0, time.UTC)

func TestBuildSourceHeaderFull(t *testing.T) {
	t.Parallel()
	header, err := scaffold.BuildSourceHeader(scaffold.HeaderOptions{
		IndexURL:       "https://pypi.example.com/simple/ ",
		ExtraIndexURLs: ordered.NewStringSet("https://a.example.com/", "https://b.example.com/"),
		NestedCFiles:   []string{"constraints.in"},
		NestedRFiles:   []string{"../shared/common.in"},
		Timestamp:      testTimestamp,
	})
	require.NoError(t, err)

	lines := strings.Split(header, "\n")
	require.GreaterOrEqual(t, len(lines), 9)
	assert.Equal(t, "# -*- mode: requirementstxt -*-", lines[0])
	assert.Equal(t, "# vim: set ft=requirements", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "# Generated by reqsrc on "), lines[2])
	assert.Equal(t, []string{
		"-c constraints.in",
		"-r ../shared/common.in",
		"--index-url https://pypi.example.com/simple/",
		"--extra-index-url https://a.example.com/",
		"--extra-index-url https://b.example.com/",
		"",
	}, lines[3:])
}

func TestBuildSourceHeaderIdempotent(t *testing.T) {
	t.Parallel()
	opts := scaffold.HeaderOptions{
		IndexURL:  "https://pypi.example.com/simple/",
		Timestamp: testTimestamp,
	}
	a, err := scaffold.BuildSourceHeader(opts)
	require.NoError(t, err)
	b, err := scaffold.BuildSourceHeader(opts)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// For any subset of present components, the header must contain no
// consecutive blank lines and must end with exactly one line break.
func TestBuildSourceHeaderNoDoubleBlankLines(t *testing.T) {
	t.Parallel()
	components := []scaffold.HeaderOptions{
		{},
		{IndexURL: "https://pypi.example.com/"},
		{ExtraIndexURLs: ordered.NewStringSet("https://a.example.com/")},
		{NestedCFiles: []string{"constraints.in"}},
		{NestedRFiles: []string{"common.in"}},
	}
	for mask := 0; mask < 1<<len(components); mask++ {
		var opts scaffold.HeaderOptions
		opts.Timestamp = testTimestamp
		for i, component := range components {
			if mask&(1<<i) == 0 {
				continue
			}
			if component.IndexURL != "" {
				opts.IndexURL = component.IndexURL
			}
			if component.ExtraIndexURLs != nil {
				opts.ExtraIndexURLs = component.ExtraIndexURLs
			}
			if component.NestedCFiles != nil {
				opts.NestedCFiles = component.NestedCFiles
			}
			if component.NestedRFiles != nil {
				opts.NestedRFiles = component.NestedRFiles
			}
		}
		header, err := scaffold.BuildSourceHeader(opts)
		require.NoError(t, err)
		assert.NotContains(t, header, "\n\n", "mask %b", mask)
		assert.True(t, strings.HasSuffix(header, "\n"), "mask %b", mask)
		assert.False(t, strings.HasSuffix(header, "\n\n"), "mask %b", mask)
	}
}

func TestBuildSourceHeaderCustomFormat(t *testing.T) {
	t.Parallel()
	header, err := scaffold.BuildSourceHeader(scaffold.HeaderOptions{
		Format:    "# stamped %Y-%m-%d\n{index_url}",
		IndexURL:  "https://pypi.example.com/",
		Timestamp: testTimestamp,
	})
	require.NoError(t, err)
	assert.Equal(t, "# stamped 2022-03-04\n--index-url https://pypi.example.com/\n", header)
}
