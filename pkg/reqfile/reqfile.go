// Copyright (C) 2022  The reqsrc authors
//
// SPDX-License-Identifier: Apache-2.0

// Package reqfile reads and writes requirement source files: pip-style
// requirements text with "-c"/"-r" nested includes and per-file package
// index directives.
package reqfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/reqsrc/reqsrc/pkg/ordered"
)

// RequirementFile is the parsed model of one requirement source file,
// including references to (but never ownership of) the files it includes
// via "-c" and "-r" directives.
type RequirementFile struct {
	Filename string

	IndexURL       string
	ExtraIndexURLs *ordered.StringSet

	NestedCFiles []*RequirementFile
	NestedRFiles []*RequirementFile

	Requirements *RequirementSet
}

// Parse loads the requirement source file at filename, following nested
// includes recursively.  A missing file parses as an empty model; callers
// that care about existence must check separately.
func Parse(filename string) (*RequirementFile, error) {
	return parse(filename, make(map[string]bool))
}

func parse(filename string, inProgress map[string]bool) (*RequirementFile, error) {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return nil, err
	}
	if inProgress[abs] {
		return nil, fmt.Errorf("%s: circular include", filename)
	}
	inProgress[abs] = true
	defer delete(inProgress, abs)

	rf := &RequirementFile{
		Filename:       filename,
		ExtraIndexURLs: ordered.NewStringSet(),
		Requirements:   NewRequirementSet(),
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return rf, nil
		}
		return nil, err
	}

	for lineno, line := range strings.Split(string(content), "\n") {
		// A "#" starts a comment only at the start of a line or after
		// whitespace; "pkg @ https://host/x.zip#sha256=..." is not a
		// comment.
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		for _, sep := range []string{" #", "\t#"} {
			if idx := strings.Index(line, sep); idx >= 0 {
				line = line[:idx]
			}
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		directive, arg := line, ""
		if idx := strings.IndexAny(line, " \t="); idx >= 0 && strings.HasPrefix(line, "-") {
			directive = line[:idx]
			arg = strings.TrimSpace(strings.TrimPrefix(line[idx:], "="))
		}

		switch directive {
		case "-c", "--constraint", "-r", "--requirement":
			nested, err := parse(rf.relpath(arg), inProgress)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", filename, lineno+1, err)
			}
			if directive == "-c" || directive == "--constraint" {
				rf.NestedCFiles = append(rf.NestedCFiles, nested)
			} else {
				rf.NestedRFiles = append(rf.NestedRFiles, nested)
			}
		case "-i", "--index-url":
			rf.IndexURL = arg
		case "--extra-index-url":
			rf.ExtraIndexURLs.Add(arg)
		default:
			if strings.HasPrefix(line, "-") {
				return nil, fmt.Errorf("%s:%d: unsupported directive: %q", filename, lineno+1, directive)
			}
			req, err := ParseRequirement(line)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", filename, lineno+1, err)
			}
			rf.Requirements.Add(req)
		}
	}
	return rf, nil
}

// relpath resolves an include argument relative to this file's directory.
func (rf *RequirementFile) relpath(arg string) string {
	if filepath.IsAbs(arg) {
		return arg
	}
	return filepath.Join(filepath.Dir(rf.Filename), arg)
}

// IndexURLs returns every index URL the file declares, directly or through
// any transitively nested file, in encounter order.
func (rf *RequirementFile) IndexURLs() *ordered.StringSet {
	set := ordered.NewStringSet()
	rf.collectIndexURLs(set)
	return set
}

func (rf *RequirementFile) collectIndexURLs(set *ordered.StringSet) {
	if rf.IndexURL != "" {
		set.Add(rf.IndexURL)
	}
	set.Union(rf.ExtraIndexURLs)
	for _, nested := range rf.NestedCFiles {
		nested.collectIndexURLs(set)
	}
	for _, nested := range rf.NestedRFiles {
		nested.collectIndexURLs(set)
	}
}

// Write atomically replaces the file at filename with header followed by
// one line per requirement.  The header is expected to already carry its
// trailing newline.
func Write(filename string, requirements *RequirementSet, header string) error {
	var content strings.Builder
	content.WriteString(header)
	for _, req := range requirements.Items() {
		content.WriteString(req.String())
		content.WriteString("\n")
	}

	tmp, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content.String()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, filename); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
