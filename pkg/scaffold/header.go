// Copyright (C) 2022  The reqsrc authors
//
// SPDX-License-Identifier: Apache-2.0

// Package scaffold creates and maintains requirement source files: building
// their paths, stamping their headers, and synchronizing their contents with
// freshly resolved requirements.
package scaffold

import (
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"

	"github.com/reqsrc/reqsrc/pkg/ordered"
	"github.com/reqsrc/reqsrc/pkg/reproducible"
)

// ModelinesHeader is the fixed first two lines of every source file: mode
// comments for Sublime Text and Vim.
const ModelinesHeader = `# -*- mode: requirementstxt -*-
# vim: set ft=requirements
`

// DefaultHeader is the default header format string.  It may contain
// strftime directives, plus the placeholders {nested_cfiles},
// {nested_rfiles}, {index_url}, and {extra_index_urls}.
const DefaultHeader = ModelinesHeader + `# Generated by reqsrc on %c
{nested_cfiles}{nested_rfiles}{index_url}{extra_index_urls}
`

// HeaderOptions are the inputs to BuildSourceHeader; every field is
// optional.
type HeaderOptions struct {
	// Format defaults to DefaultHeader.
	Format string

	IndexURL       string
	ExtraIndexURLs *ordered.StringSet
	NestedCFiles   []string
	NestedRFiles   []string

	// Timestamp defaults to reproducible.Now().
	Timestamp time.Time
}

// BuildSourceHeader renders a source file header.  Rendering the same
// options twice yields byte-identical output; the timestamp is the only
// moving part.
func BuildSourceHeader(opts HeaderOptions) (string, error) {
	format := opts.Format
	if format == "" {
		format = DefaultHeader
	}
	timestamp := opts.Timestamp
	if timestamp.IsZero() {
		timestamp = reproducible.Now()
	}

	rendered, err := strftime.Format(format, timestamp)
	if err != nil {
		return "", fmt.Errorf("scaffold.BuildSourceHeader: %w", err)
	}

	components := map[string]string{
		"nested_cfiles":    directiveLines("-c ", opts.NestedCFiles),
		"nested_rfiles":    directiveLines("-r ", opts.NestedRFiles),
		"index_url":        "",
		"extra_index_urls": directiveLines("--extra-index-url ", opts.ExtraIndexURLs.Items()),
	}
	if opts.IndexURL != "" {
		components["index_url"] = "--index-url " + strings.TrimSpace(opts.IndexURL) + "\n"
	}

	oldnew := make([]string, 0, 2*len(components))
	for key, val := range components {
		oldnew = append(oldnew, "{"+key+"}", val)
	}
	rendered = strings.NewReplacer(oldnew...).Replace(rendered)

	return strings.TrimSpace(rendered) + "\n", nil
}

// directiveLines renders one directive line per element.  A non-empty
// result carries exactly one trailing line break, so that concatenating
// components never produces double blank lines.
func directiveLines(directive string, items []string) string {
	if len(items) == 0 {
		return ""
	}
	var ret strings.Builder
	for _, item := range items {
		ret.WriteString(directive)
		ret.WriteString(item)
		ret.WriteString("\n")
	}
	return ret.String()
}
