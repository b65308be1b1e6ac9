// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPathsCmd(a *app) *cobra.Command {
	var existing bool

	cmd := &cobra.Command{
		Use:   "paths FILE...",
		Short: "List the snapshot artifact candidates of test files",
		Long: `Lists, in lookup order, every path where the snapshot artifact of each
test file may live. With --existing only artifacts present on disk are
listed, each once, and artifact files given as arguments are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := a.newResolver()
			if err != nil {
				return err
			}
			var paths []string
			if existing {
				paths = resolver.ExternalFiles(args)
			} else {
				for _, file := range args {
					paths = append(paths, resolver.Store().AllPossiblePathsForFile(file)...)
				}
			}
			for _, p := range paths {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), p); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&existing, "existing", false, "Only list artifacts that exist")
	return cmd
}
