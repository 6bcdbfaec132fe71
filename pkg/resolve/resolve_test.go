package resolve_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqsrc/reqsrc/pkg/pep440"
	"github.com/reqsrc/reqsrc/pkg/reqfile"
	"github.com/reqsrc/reqsrc/pkg/resolve"
)

// newIndex serves a minimal Simple Repository API index; projects maps
// canonical project name to served distribution filenames.
func newIndex(t *testing.T, projects map[string][]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for name, filenames := range projects {
		filenames := filenames
		mux.HandleFunc("/simple/"+name+"/", func(w http.ResponseWriter, _ *http.Request) {
			var page strings.Builder
			page.WriteString("<html><body>\n")
			for _, filename := range filenames {
				fmt.Fprintf(&page, "<a href=\"/packages/%s\">%s</a><br/>\n", filename, filename)
			}
			page.WriteString("</body></html>\n")
			_, _ = w.Write([]byte(page.String()))
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func reqLines(set *reqfile.RequirementSet) []string {
	var lines []string
	for _, req := range set.Items() {
		lines = append(lines, req.String())
	}
	return lines
}

func TestBuildIReqSet(t *testing.T) {
	t.Parallel()
	srv := newIndex(t, map[string][]string{
		"flask": {
			"Flask-1.0.tar.gz",
			"Flask-2.0.1-py3-none-any.whl",
			"Flask-2.1.0rc1-py3-none-any.whl",
		},
		"six": {"six-1.16.0.tar.gz"},
	})
	indexURLs := []string{srv.URL + "/simple/"}
	var resolver resolve.Resolver

	set, err := resolver.BuildIReqSet(context.Background(), []string{"flask", "six>=1.10"}, indexURLs,
		resolve.BuildOptions{ResolveCanonicalNames: true, ResolveVersions: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Flask==2.0.1", "six>=1.10"}, reqLines(set))

	// Prereleases are eligible only when asked for.
	set, err = resolver.BuildIReqSet(context.Background(), []string{"flask"}, indexURLs,
		resolve.BuildOptions{Prereleases: true, ResolveCanonicalNames: true, ResolveVersions: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Flask==2.1.0rc1"}, reqLines(set))

	// With resolution toggled off, the specifier passes through as
	// given.
	set, err = resolver.BuildIReqSet(context.Background(), []string{"flask"}, indexURLs, resolve.BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"flask"}, reqLines(set))
}

func TestBuildIReqSetErrors(t *testing.T) {
	t.Parallel()
	srv := newIndex(t, map[string][]string{
		"flask": {"Flask-1.0.tar.gz"},
	})
	indexURLs := []string{srv.URL + "/simple/"}
	var resolver resolve.Resolver

	opts := resolve.BuildOptions{ResolveCanonicalNames: true, ResolveVersions: true}
	for _, specifier := range []string{"no-such-project", "flask>=9000", "==not=a=req"} {
		specifier := specifier
		t.Run(specifier, func(t *testing.T) {
			t.Parallel()
			_, err := resolver.BuildIReqSet(context.Background(), []string{specifier}, indexURLs, opts)
			require.Error(t, err)
			var resErr *resolve.ResolutionError
			assert.True(t, errors.As(err, &resErr))
		})
	}
}

func TestBuildIReqSetFallsThroughIndexes(t *testing.T) {
	t.Parallel()
	first := newIndex(t, map[string][]string{})
	second := newIndex(t, map[string][]string{
		"private-pkg": {"private_pkg-0.3.0-py3-none-any.whl"},
	})
	var resolver resolve.Resolver

	set, err := resolver.BuildIReqSet(context.Background(), []string{"private-pkg"},
		[]string{first.URL + "/simple/", second.URL + "/simple/"},
		resolve.BuildOptions{ResolveCanonicalNames: true, ResolveVersions: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"private_pkg==0.3.0"}, reqLines(set))
}

func TestBuildIReqSetLocalSource(t *testing.T) {
	t.Parallel()
	srcDir := t.TempDir()
	pkgDir := filepath.Join(srcDir, "vendored-pkg")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "setup.py"), []byte("#\n"), 0o644))

	var resolver resolve.Resolver
	set, err := resolver.BuildIReqSet(context.Background(), []string{"vendored-pkg"}, nil,
		resolve.BuildOptions{SourceDir: srcDir, ResolveCanonicalNames: true, ResolveVersions: true})
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	req := set.Items()[0]
	assert.Equal(t, "vendored-pkg", req.Name)
	assert.True(t, strings.HasPrefix(req.URL, "file://"), req.URL)
}

func TestResolveIReqsIntersect(t *testing.T) {
	t.Parallel()
	parse := func(str string) *reqfile.Requirement {
		req, err := reqfile.ParseRequirement(str)
		require.NoError(t, err)
		return req
	}
	var resolver resolve.Resolver

	set := reqfile.NewRequirementSet(
		parse("zzz==1.0"),
		parse("Flask>=1,<3"),
		parse("flask>=2,<4"),
		parse("aaa==2.0"),
	)
	merged, err := resolver.ResolveIReqs(context.Background(), set, false, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"aaa==2.0", "Flask>=2,<3", "zzz==1.0"}, reqLines(merged))
}

func TestResolveIReqsUnsatisfiable(t *testing.T) {
	t.Parallel()
	parse := func(str string) *reqfile.Requirement {
		req, err := reqfile.ParseRequirement(str)
		require.NoError(t, err)
		return req
	}
	var resolver resolve.Resolver

	set := reqfile.NewRequirementSet(parse("flask<1"), parse("flask>2"))
	_, err := resolver.ResolveIReqs(context.Background(), set, false, true)
	require.Error(t, err)
	var unsatErr *pep440.UnsatisfiableError
	assert.True(t, errors.As(err, &unsatErr))
	assert.Contains(t, err.Error(), "flask")
}

func TestResolveIReqsNoIntersect(t *testing.T) {
	t.Parallel()
	parse := func(str string) *reqfile.Requirement {
		req, err := reqfile.ParseRequirement(str)
		require.NoError(t, err)
		return req
	}
	var resolver resolve.Resolver

	set := reqfile.NewRequirementSet(parse("flask>=1,<3"), parse("flask>=2,<4"))
	out, err := resolver.ResolveIReqs(context.Background(), set, false, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"flask>=1,<3", "flask>=2,<4"}, reqLines(out))
}
