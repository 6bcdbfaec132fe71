// Copyright (C) 2022  The reqsrc authors
//
// SPDX-License-Identifier: Apache-2.0

package scaffold

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/datawire/dlib/dlog"
	"github.com/gofrs/flock"

	"github.com/reqsrc/reqsrc/pkg/ordered"
	"github.com/reqsrc/reqsrc/pkg/reqfile"
	"github.com/reqsrc/reqsrc/pkg/resolve"
)

// IndexURLMismatchError is returned when a caller asks an existing source
// file to adopt an index URL other than the one it already records.
type IndexURLMismatchError struct {
	Given    string
	Recorded string
}

func (e *IndexURLMismatchError) Error() string {
	return fmt.Sprintf("index URL mismatch: %q != %q", e.Given, e.Recorded)
}

// Resolver is the narrow contract the engine consumes specifier resolution
// through; *resolve.Resolver is the production implementation.
type Resolver interface {
	BuildIReqSet(ctx context.Context, specifiers []string, indexURLs []string,
		opts resolve.BuildOptions) (*reqfile.RequirementSet, error)
	ResolveIReqs(ctx context.Context, reqs *reqfile.RequirementSet,
		prereleases, intersect bool) (*reqfile.RequirementSet, error)
}

// Engine synchronizes requirement source files.  All mutation of a source
// file is expected to go through one Engine method call, which runs under
// the Engine's cross-process lock.
type Engine struct {
	// Lock is a single advisory lock shared by every source file under
	// an installation; it serializes whole extend operations, not
	// individual files.
	Lock     *flock.Flock
	Resolver Resolver
}

// NewEngine returns an Engine whose lock lives at lockfile.
func NewEngine(lockfile string, resolver Resolver) *Engine {
	// The lock file's directory may not exist yet on a fresh
	// installation; the lock itself creates only the file.
	_ = os.MkdirAll(filepath.Dir(lockfile), 0o777)
	return &Engine{
		Lock:     flock.New(lockfile),
		Resolver: resolver,
	}
}

// ExtendOptions are the optional inputs to ExtendSourceFile.
type ExtendOptions struct {
	// Extension defaults to DefaultExtension, Prefix to DefaultPrefix.
	Extension string
	Prefix    string

	// IndexURL, if set, must agree with the index URL the source file
	// already records.
	IndexURL       string
	ExtraIndexURLs []string
	// LookupIndexURLs override the indexes consulted during resolution;
	// when nil they are derived from IndexURL, ExtraIndexURLs, and the
	// file's own (transitive) index declarations.
	LookupIndexURLs []string

	Prereleases           bool
	ResolveCanonicalNames bool
	ResolveVersions       bool
}

// ExtendSourceFile merges the given specifiers into the tagged requirement
// source file under workingDirectory: new requirements are resolved against
// the lookup indexes, unioned with the file's current requirement set,
// reduced to one entry per project by version-range intersection, and the
// file is atomically rewritten with a fresh header.  On any failure the
// file is left byte-identical to its prior state.
func (e *Engine) ExtendSourceFile(
	ctx context.Context,
	workingDirectory string,
	tagName string,
	specifiers []string,
	opts ExtendOptions,
) (err error) {
	if e.Lock != nil {
		if err := e.Lock.Lock(); err != nil {
			return err
		}
		defer func() {
			if unlockErr := e.Lock.Unlock(); unlockErr != nil && err == nil {
				err = unlockErr
			}
		}()
	}
	return e.extend(ctx, workingDirectory, tagName, specifiers, opts)
}

func (e *Engine) extend(
	ctx context.Context,
	workingDirectory string,
	tagName string,
	specifiers []string,
	opts ExtendOptions,
) error {
	extraIndexURLs := ordered.NewStringSet(opts.ExtraIndexURLs...)
	filename := BuildFilename(workingDirectory, tagName, opts.Extension, opts.Prefix)

	rf, err := reqfile.Parse(filename)
	if err != nil {
		return err
	}

	indexURL := opts.IndexURL
	if _, statErr := os.Stat(filename); statErr == nil {
		switch {
		case indexURL != "" && indexURL != rf.IndexURL:
			return &IndexURLMismatchError{Given: indexURL, Recorded: rf.IndexURL}
		case indexURL == "":
			indexURL = rf.IndexURL
			extraIndexURLs.Union(rf.ExtraIndexURLs)
		}
	}

	lookupIndexURLs := opts.LookupIndexURLs
	if lookupIndexURLs == nil {
		derived := ordered.NewStringSet()
		if indexURL != "" {
			derived.Add(indexURL)
		}
		derived.Union(extraIndexURLs)
		if derived.Len() == 0 {
			derived = rf.IndexURLs()
		}
		lookupIndexURLs = derived.Items()
	}
	dlog.Debugf(ctx, "extending %q using lookup indexes %q", filename, lookupIndexURLs)

	newReqs, err := e.Resolver.BuildIReqSet(ctx, specifiers, lookupIndexURLs, resolve.BuildOptions{
		Prereleases:           opts.Prereleases,
		ResolveCanonicalNames: opts.ResolveCanonicalNames,
		ResolveVersions:       opts.ResolveVersions,
		SourceDir:             filepath.Dir(workingDirectory),
	})
	if err != nil {
		return err
	}
	rf.Requirements.Union(newReqs)

	resolved, err := e.Resolver.ResolveIReqs(ctx, rf.Requirements, opts.Prereleases, true)
	if err != nil {
		return err
	}

	header, err := BuildSourceHeader(HeaderOptions{
		IndexURL:       indexURL,
		ExtraIndexURLs: extraIndexURLs,
		NestedCFiles:   nestedLabels(filename, rf.NestedCFiles),
		NestedRFiles:   nestedLabels(filename, rf.NestedRFiles),
	})
	if err != nil {
		return err
	}

	dlog.Debugf(ctx, "writing %d requirements to %q", resolved.Len(), filename)
	return reqfile.Write(filename, resolved, header)
}

// nestedLabels renders include paths relative to the source file's own
// directory (not the working directory), preserving include order and
// dropping duplicates.
func nestedLabels(filename string, nested []*reqfile.RequirementFile) []string {
	labels := ordered.NewStringSet()
	for _, nestedFile := range nested {
		label, err := filepath.Rel(filepath.Dir(filename), nestedFile.Filename)
		if err != nil {
			label = nestedFile.Filename
		}
		labels.Add(filepath.ToSlash(label))
	}
	return labels.Items()
}
