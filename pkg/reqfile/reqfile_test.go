package reqfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqsrc/reqsrc/pkg/pep440"
	"github.com/reqsrc/reqsrc/pkg/reqfile"
	"github.com/reqsrc/reqsrc/pkg/testutil"
)

func mustParseSpecifier(t *testing.T, str string) pep440.Specifier {
	t.Helper()
	spec, err := pep440.ParseSpecifier(str)
	require.NoError(t, err)
	return spec
}

func writeFile(t *testing.T, filename, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filename), 0o755))
	require.NoError(t, os.WriteFile(filename, []byte(content), 0o644))
}

func TestParse(t *testing.T) {
	t.Parallel()
	tmpdir := t.TempDir()
	writeFile(t, filepath.Join(tmpdir, "src", "main.in"), `
# Generated by reqsrc on Sat Jan  1 00:00:00 2022
-c constraints.in
-r ../shared/common.in
--index-url https://pypi.example.com/simple/
--extra-index-url https://extra.example.com/simple/
Flask>=1.0,<2.0  # web framework
requests[socks]~=2.25
six ; python_version < "3.8"
vendored @ file:///src/vendored#sha256=abc
`)
	writeFile(t, filepath.Join(tmpdir, "src", "constraints.in"), `
--extra-index-url https://nested.example.com/simple/
itsdangerous<2
`)
	writeFile(t, filepath.Join(tmpdir, "shared", "common.in"), `
click
`)

	rf, err := reqfile.Parse(filepath.Join(tmpdir, "src", "main.in"))
	require.NoError(t, err)

	assert.Equal(t, "https://pypi.example.com/simple/", rf.IndexURL)
	assert.Equal(t, []string{"https://extra.example.com/simple/"}, rf.ExtraIndexURLs.Items())

	require.Len(t, rf.NestedCFiles, 1)
	assert.Equal(t, filepath.Join(tmpdir, "src", "constraints.in"), rf.NestedCFiles[0].Filename)
	require.Len(t, rf.NestedRFiles, 1)
	assert.Equal(t, filepath.Join(tmpdir, "shared", "common.in"), rf.NestedRFiles[0].Filename)

	assert.Equal(t, []string{
		"https://pypi.example.com/simple/",
		"https://extra.example.com/simple/",
		"https://nested.example.com/simple/",
	}, rf.IndexURLs().Items())

	var lines []string
	for _, req := range rf.Requirements.Items() {
		lines = append(lines, req.String())
	}
	assert.Equal(t, []string{
		"Flask>=1.0,<2.0",
		"requests[socks]~=2.25",
		`six ; python_version < "3.8"`,
		"vendored @ file:///src/vendored#sha256=abc",
	}, lines)
}

func TestParseMissingFile(t *testing.T) {
	t.Parallel()
	rf, err := reqfile.Parse(filepath.Join(t.TempDir(), "src", "nope.in"))
	require.NoError(t, err)
	assert.Empty(t, rf.IndexURL)
	assert.Equal(t, 0, rf.Requirements.Len())
	assert.Equal(t, 0, rf.IndexURLs().Len())
}

func TestParseErrors(t *testing.T) {
	t.Parallel()
	testcases := map[string]string{
		"bad-directive":   "--frobnicate on\n",
		"bad-requirement": "=bogus=\n",
		"bad-specifier":   "flask>>=1\n",
	}
	for tcName, content := range testcases {
		tcName, content := tcName, content
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			filename := filepath.Join(t.TempDir(), "bad.in")
			writeFile(t, filename, content)
			_, err := reqfile.Parse(filename)
			assert.Error(t, err)
		})
	}
}

func TestParseCircularInclude(t *testing.T) {
	t.Parallel()
	tmpdir := t.TempDir()
	writeFile(t, filepath.Join(tmpdir, "a.in"), "-r b.in\n")
	writeFile(t, filepath.Join(tmpdir, "b.in"), "-r a.in\n")
	_, err := reqfile.Parse(filepath.Join(tmpdir, "a.in"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular include")
}

func TestWrite(t *testing.T) {
	t.Parallel()
	filename := filepath.Join(t.TempDir(), "main.in")

	reqs := reqfile.NewRequirementSet(
		&reqfile.Requirement{Name: "Flask", Specifier: mustParseSpecifier(t, ">=1.0,<2.0")},
		&reqfile.Requirement{Name: "six"},
	)
	require.NoError(t, reqfile.Write(filename, reqs, "# header\n"))

	content, err := os.ReadFile(filename)
	require.NoError(t, err)
	testutil.AssertEqualText(t, "# header\nFlask>=1.0,<2.0\nsix\n", string(content))

	// A rewrite fully replaces prior contents.
	require.NoError(t, reqfile.Write(filename, reqfile.NewRequirementSet(), "# header\n"))
	content, err = os.ReadFile(filename)
	require.NoError(t, err)
	assert.Equal(t, "# header\n", string(content))
}
