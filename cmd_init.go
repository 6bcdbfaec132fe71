// Copyright (C) 2022  The reqsrc authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/datawire/dlib/dlog"
	"github.com/spf13/cobra"

	"github.com/reqsrc/reqsrc/pkg/cliutil"
	"github.com/reqsrc/reqsrc/pkg/config"
	"github.com/reqsrc/reqsrc/pkg/scaffold"
)

func init() {
	var (
		indexURL       string
		extraIndexURLs []string
		tags           []string
		overwrite      bool
	)
	cmd := &cobra.Command{
		Use:   "init [flags]",
		Short: "Create the requirements source directory and its tagged source files",

		Long: "Create the requirements source directory in the current working directory, " +
			"and inside it one header-stamped source file per tag.  Existing source " +
			"files are left alone unless --overwrite says otherwise.",

		Args: cliutil.WrapPositionalArgs(cobra.NoArgs),
		RunE: func(flags *cobra.Command, _ []string) error {
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

			dir, err := scaffold.InitSourceDir(workDir, scaffold.InitDirOptions{
				Name:    cfg.SourceDir,
				ExistOK: true,
			})
			if err != nil {
				return err
			}
			dlog.Debugf(ctx, "source directory %q", dir)

			for _, tag := range tags {
				filename, err := scaffold.InitSourceFile(workDir, tag, scaffold.InitFileOptions{
					Extension:      cfg.Extension,
					Prefix:         cfg.SourceDir,
					IndexURL:       indexURL,
					ExtraIndexURLs: extraIndexURLs,
					Overwrite:      overwrite,
				})
				if err != nil {
					return err
				}
				dlog.Infof(ctx, "initialized %q", filename)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&indexURL, "index-url", "i", "",
		"Record `URL` as the source files' primary package index")
	cmd.Flags().StringArrayVarP(&extraIndexURLs, "extra-index-url", "e", nil,
		"Record `URL` as an additional package index (repeatable)")
	cmd.Flags().StringArrayVarP(&tags, "tag", "t", []string{"main"},
		"Create a source file for `TAG` (repeatable)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false,
		"Replace existing source files with a fresh header")
	argparser.AddCommand(cmd)
}
