// Copyright (C) 2022  The reqsrc authors
//
// SPDX-License-Identifier: Apache-2.0

// Command reqsrc maintains Python requirement source files: hierarchical
// "*.in" files that record which packages a project directly depends on,
// and which version ranges of them are acceptable.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reqsrc/reqsrc/pkg/cliutil"
)

var argparser = &cobra.Command{
	Use:   "reqsrc {[flags]|SUBCOMMAND...}",
	Short: "Maintain Python requirement source files",

	Args: cliutil.OnlySubcommands,
	RunE: cliutil.RunSubcommands,

	SilenceErrors: true, // main() will handle this after .ExecuteContext() returns
	SilenceUsage:  true, // our FlagErrorFunc will handle it
}

func init() {
	argparser.SetFlagErrorFunc(cliutil.FlagErrorFunc)
	argparser.SetHelpTemplate(cliutil.HelpTemplate)
}

func main() {
	ctx := context.Background()

	if err := argparser.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(argparser.ErrOrStderr(), "%s: error: %v\n", argparser.CommandPath(), err)
		os.Exit(1)
	}
}
