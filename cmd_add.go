// Copyright (C) 2022  The reqsrc authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/reqsrc/reqsrc/pkg/cliutil"
	"github.com/reqsrc/reqsrc/pkg/config"
	"github.com/reqsrc/reqsrc/pkg/resolve"
	"github.com/reqsrc/reqsrc/pkg/scaffold"
)

func init() {
	var (
		tag             string
		indexURL        string
		extraIndexURLs  []string
		lookupIndexURLs []string
		prereleases     bool
		resolveNames    bool
		resolveVersions bool
	)
	cmd := &cobra.Command{
		Use:   "add [flags] SPECIFIER...",
		Short: "Add requirement specifiers to a tagged source file",

		Long: "Merge the given requirement specifiers into the tagged source file: new " +
			"requirements are resolved against the package indexes, unioned with the " +
			"file's current requirements, reduced to one entry per project by " +
			"version-range intersection, and the file is rewritten in place." +
			"\n\n" +
			"A specifier is a pip requirement line, for example \"Flask\", " +
			"\"requests>=2,<3\", or \"pkg[extra]==1.0\"; a bare name that matches a " +
			"local directory with a setup.py, setup.cfg, or pyproject.toml is recorded " +
			"as a file:// reference instead of being looked up remotely.",

		Args: cliutil.WrapPositionalArgs(cobra.MinimumNArgs(1)),
		RunE: func(flags *cobra.Command, args []string) error {
			ctx := flags.Context()

			workDir, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg, err := config.Load(workDir)
			if err != nil {
				return err
			}
			if indexURL == "" {
				indexURL = cfg.IndexURL
			}
			extraIndexURLs = append(append([]string(nil), cfg.ExtraIndexURLs...), extraIndexURLs...)

			engine := scaffold.NewEngine(cfg.LockFile, &resolve.Resolver{})
			return engine.ExtendSourceFile(ctx, workDir, tag, args, scaffold.ExtendOptions{
				Extension:             cfg.Extension,
				Prefix:                cfg.SourceDir,
				IndexURL:              indexURL,
				ExtraIndexURLs:        extraIndexURLs,
				LookupIndexURLs:       lookupIndexURLs,
				Prereleases:           prereleases,
				ResolveCanonicalNames: resolveNames,
				ResolveVersions:       resolveVersions,
			})
		},
	}
	cmd.Flags().StringVarP(&tag, "tag", "t", "main",
		"Extend the source file for `TAG`")
	cmd.Flags().StringVarP(&indexURL, "index-url", "i", "",
		"Primary package index `URL`; must agree with what the source file records")
	cmd.Flags().StringArrayVarP(&extraIndexURLs, "extra-index-url", "e", nil,
		"Additional package index `URL` (repeatable)")
	cmd.Flags().StringArrayVar(&lookupIndexURLs, "lookup", nil,
		"Resolve against `URL` instead of the indexes the source file records (repeatable)")
	cmd.Flags().BoolVar(&prereleases, "pre", false,
		"Allow resolution to pre-release and development versions")
	cmd.Flags().BoolVar(&resolveNames, "resolve-names", true,
		"Replace requirement names with the index's canonical spelling")
	cmd.Flags().BoolVar(&resolveVersions, "resolve-versions", true,
		"Pin requirements that have no version constraint to the newest release")
	argparser.AddCommand(cmd)
}
