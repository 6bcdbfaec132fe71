package pep503_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqsrc/reqsrc/pkg/pep503"
	"github.com/reqsrc/reqsrc/pkg/testutil"
)

func TestNormalizeName(t *testing.T) {
	t.Parallel()
	testcases := map[string]string{
		"flask":            "flask",
		"Flask":            "flask",
		"zope.interface":   "zope-interface",
		"ruamel.yaml.clib": "ruamel-yaml-clib",
		"Foo__Bar":         "foo-bar",
		"foo-_.bar":        "foo-bar",
	}
	for in, want := range testcases {
		assert.Equal(t, want, pep503.NormalizeName(in))
	}
}

func TestNormalizeNameIdempotent(t *testing.T) {
	t.Parallel()
	testutil.QuickCheck(t,
		func(name string) bool {
			normalized := pep503.NormalizeName(name)
			return pep503.NormalizeName(normalized) == normalized
		},
		testutil.QuickConfig{},
		[]interface{}{"-_.-_."},
		[]interface{}{"Foo__Bar"},
		[]interface{}{""})
}

func TestListProjectFiles(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/simple/flask/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<!DOCTYPE html><html><body>
<a href="../../packages/Flask-1.0.tar.gz#sha256=abc">Flask-1.0.tar.gz</a><br/>
<a href="../../packages/Flask-2.0.1-py3-none-any.whl" data-requires-python="&gt;=3.6">Flask-2.0.1-py3-none-any.whl</a><br/>
</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := pep503.Client{BaseURL: srv.URL + "/simple/"}

	links, err := client.ListProjectFiles(context.Background(), "Flask")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "Flask-1.0.tar.gz", links[0].Filename)
	assert.Equal(t, srv.URL+"/packages/Flask-1.0.tar.gz#sha256=abc", links[0].HRef)
	assert.Equal(t, "Flask-2.0.1-py3-none-any.whl", links[1].Filename)
	assert.Equal(t, ">=3.6", links[1].DataAttrs["data-requires-python"])

	_, err = client.ListProjectFiles(context.Background(), "no-such-project")
	require.Error(t, err)
	var httpErr *pep503.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)

	_, err = client.ListProjectFiles(context.Background(), "bad name")
	assert.Error(t, err)
}
