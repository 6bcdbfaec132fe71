// Copyright (C) 2022  The reqsrc authors
//
// SPDX-License-Identifier: Apache-2.0

// Package resolve turns raw specifier strings into resolved requirements by
// querying package indexes, and reduces requirement sets that contain
// multiple constraints for one project down to a single intersected
// constraint per project.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/datawire/dlib/dlog"

	"github.com/reqsrc/reqsrc/pkg/pep440"
	"github.com/reqsrc/reqsrc/pkg/pep503"
	"github.com/reqsrc/reqsrc/pkg/reqfile"
)

// ResolutionError is returned when a specifier cannot be matched against
// any lookup index.
type ResolutionError struct {
	Input string
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %q: %v", e.Input, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Resolver resolves specifiers against PEP 503 package indexes.
type Resolver struct {
	HTTPClient *http.Client
	UserAgent  string
}

// BuildOptions mirror the resolution toggles of the requirement engine.
type BuildOptions struct {
	Prereleases           bool
	ResolveCanonicalNames bool
	ResolveVersions       bool
	// SourceDir is searched for locally-vendored packages before any
	// index is consulted.
	SourceDir string
}

// BuildIReqSet resolves raw specifier strings against the given lookup
// indexes into a normalized, deduplicated requirement set.
func (r *Resolver) BuildIReqSet(
	ctx context.Context,
	specifiers []string,
	indexURLs []string,
	opts BuildOptions,
) (*reqfile.RequirementSet, error) {
	ret := reqfile.NewRequirementSet()
	for _, specifier := range specifiers {
		req, err := r.buildIReq(ctx, specifier, indexURLs, opts)
		if err != nil {
			return nil, err
		}
		ret.Add(req)
	}
	return ret, nil
}

func (r *Resolver) buildIReq(
	ctx context.Context,
	specifier string,
	indexURLs []string,
	opts BuildOptions,
) (*reqfile.Requirement, error) {
	if req := localRequirement(specifier, opts.SourceDir); req != nil {
		dlog.Debugf(ctx, "resolved %q to local source %q", specifier, req.URL)
		return req, nil
	}

	req, err := reqfile.ParseRequirement(specifier)
	if err != nil {
		return nil, &ResolutionError{Input: specifier, Err: err}
	}
	if req.URL != "" || !(opts.ResolveCanonicalNames || opts.ResolveVersions) {
		return req, nil
	}

	proj, err := r.lookupProject(ctx, req.Name, indexURLs)
	if err != nil {
		return nil, &ResolutionError{Input: specifier, Err: err}
	}
	if opts.ResolveCanonicalNames && proj.name != "" {
		req.Name = proj.name
	}
	if opts.ResolveVersions {
		var exclude pep440.ExclusionBehavior = pep440.ExcludePreReleases{}
		if opts.Prereleases {
			exclude = pep440.AllowAll{}
		}
		best := req.Specifier.Select(proj.versions, exclude)
		if best == nil {
			return nil, &ResolutionError{
				Input: specifier,
				Err:   fmt.Errorf("no version matching %q", req.Specifier.String()),
			}
		}
		dlog.Debugf(ctx, "best candidate for %q is %s", req.Name, best)
		if len(req.Specifier) == 0 {
			req.Specifier = pep440.Specifier{{
				CmpOp:   pep440.CmpOpStrictMatch,
				Version: *best,
			}}
		}
	}
	return req, nil
}

// localRequirement reports the given specifier as a locally-vendored
// package if it names a directory (under sourceDir, unless absolute)
// containing a Python project.
func localRequirement(specifier, sourceDir string) *reqfile.Requirement {
	if sourceDir == "" || strings.ContainsAny(specifier, "<>=!~[;@") {
		return nil
	}
	dir := specifier
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(sourceDir, dir)
	}
	for _, marker := range []string{"setup.py", "setup.cfg", "pyproject.toml"} {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			abs, err := filepath.Abs(dir)
			if err != nil {
				return nil
			}
			fileURL := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
			return &reqfile.Requirement{
				Name: filepath.Base(abs),
				URL:  fileURL.String(),
			}
		}
	}
	return nil
}

type project struct {
	name     string // display name as spelled by the index
	versions []pep440.Version
}

// lookupProject queries the lookup indexes in order and returns the
// project's canonical display name and known versions from the first index
// that knows the project.
func (r *Resolver) lookupProject(ctx context.Context, name string, indexURLs []string) (*project, error) {
	if len(indexURLs) == 0 {
		indexURLs = []string{pep503.PyPIBaseURL}
	}
	var lastErr error
	for _, indexURL := range indexURLs {
		client := pep503.Client{
			BaseURL:    indexURL,
			HTTPClient: r.HTTPClient,
			UserAgent:  r.UserAgent,
		}
		links, err := client.ListProjectFiles(ctx, name)
		if err != nil {
			var httpErr *pep503.HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
				dlog.Debugf(ctx, "index %q does not know %q", indexURL, name)
				lastErr = err
				continue
			}
			return nil, err
		}
		proj := projectFromLinks(name, links)
		if len(proj.versions) == 0 {
			lastErr = fmt.Errorf("index %q has no usable distributions for %q", indexURL, name)
			continue
		}
		return proj, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("not found in any index")
	}
	return nil, lastErr
}

func projectFromLinks(name string, links []pep503.Link) *project {
	key := pep503.NormalizeName(name)
	proj := &project{}
	for _, link := range links {
		distName, version, ok := parseDistFilename(link.Filename)
		if !ok || pep503.NormalizeName(distName) != key {
			continue
		}
		if proj.name == "" || preferredName(distName, proj.name) {
			proj.name = distName
		}
		proj.versions = append(proj.versions, version)
	}
	return proj
}

// preferredName makes the display name deterministic when an index serves a
// mix of spellings ("Flask" sdists next to "flask" wheels): a spelling with
// an upper-case letter or without wheel-mangled underscores wins.
func preferredName(candidate, current string) bool {
	score := func(name string) int {
		n := 0
		if name != strings.ToLower(name) {
			n += 2
		}
		if !strings.Contains(name, "_") {
			n++
		}
		return n
	}
	return score(candidate) > score(current)
}

//nolint:gochecknoglobals // Would be 'const'.
var sdistSuffixes = []string{".tar.gz", ".tgz", ".tar.bz2", ".zip"}

// parseDistFilename extracts the distribution name and version from a wheel
// or sdist filename; anything else (eggs, exe installers) is skipped.
func parseDistFilename(filename string) (string, pep440.Version, bool) {
	if strings.HasSuffix(filename, ".whl") {
		// {dist}-{version}-{python}-{abi}-{platform}.whl, where dist
		// has runs of non-alphanumerics collapsed to "_".
		parts := strings.Split(strings.TrimSuffix(filename, ".whl"), "-")
		if len(parts) < 5 {
			return "", pep440.Version{}, false
		}
		ver, err := pep440.ParseVersion(parts[1])
		if err != nil {
			return "", pep440.Version{}, false
		}
		return parts[0], *ver, true
	}
	for _, suffix := range sdistSuffixes {
		if !strings.HasSuffix(filename, suffix) {
			continue
		}
		stem := strings.TrimSuffix(filename, suffix)
		// The name itself may contain "-"; the version is whatever
		// follows the last "-" that parses as a version.
		for idx := strings.LastIndex(stem, "-"); idx > 0; idx = strings.LastIndex(stem[:idx], "-") {
			if ver, err := pep440.ParseVersion(stem[idx+1:]); err == nil {
				return stem[:idx], *ver, true
			}
		}
		return "", pep440.Version{}, false
	}
	return "", pep440.Version{}, false
}

// ResolveIReqs reduces a requirement set to at most one entry per canonical
// name: phase 1 groups entries by name; phase 2, when intersect is set,
// folds each group's version constraints into their logical intersection.
// An empty intersection surfaces as an error, never as a silently dropped
// requirement.  Output order is sorted by canonical name, so that repeated
// runs over unchanged inputs write identical requirement lines.
func (r *Resolver) ResolveIReqs(
	ctx context.Context,
	reqs *reqfile.RequirementSet,
	prereleases bool,
	intersect bool,
) (*reqfile.RequirementSet, error) {
	keys, groups := reqs.GroupByKey()
	sort.Strings(keys)

	ret := reqfile.NewRequirementSet()
	for _, key := range keys {
		group := groups[key]
		if len(group) == 1 {
			ret.Add(group[0])
			continue
		}
		if !intersect {
			for _, req := range group {
				ret.Add(req)
			}
			continue
		}
		merged, err := mergeGroup(key, group)
		if err != nil {
			return nil, err
		}
		dlog.Debugf(ctx, "merged %d constraints for %q into %q", len(group), key, merged.String())
		ret.Add(merged)
	}
	return ret, nil
}

func mergeGroup(key string, group []*reqfile.Requirement) (*reqfile.Requirement, error) {
	merged := &reqfile.Requirement{Name: group[0].Name}
	extras := make(map[string]bool)
	for _, req := range group {
		for _, extra := range req.Extras {
			if !extras[extra] {
				extras[extra] = true
				merged.Extras = append(merged.Extras, extra)
			}
		}
		if req.Marker != "" && merged.Marker == "" {
			merged.Marker = req.Marker
		}
		if req.URL != "" {
			if merged.URL != "" && merged.URL != req.URL {
				return nil, &ResolutionError{
					Input: key,
					Err:   fmt.Errorf("conflicting URLs %q and %q", merged.URL, req.URL),
				}
			}
			merged.URL = req.URL
		}
	}
	if merged.URL != "" {
		// A direct reference overrides version constraints; the URL
		// names one exact artifact.
		return merged, nil
	}
	for _, req := range group {
		spec, err := pep440.Intersect(merged.Specifier, req.Specifier)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		merged.Specifier = spec
	}
	return merged, nil
}
