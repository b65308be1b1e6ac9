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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/snapsight/services/snapsight/lookup"
)

// errNoSnapshot is returned when the position has no resolvable snapshot.
var errNoSnapshot = errors.New("no snapshot at position")

type resolveOptions struct {
	line      int
	character int
	offset    int
	hover     bool
	asJSON    bool
}

func newResolveCmd(a *app) *cobra.Command {
	var opts resolveOptions

	cmd := &cobra.Command{
		Use:   "resolve FILE",
		Short: "Print the snapshot asserted at a position in a test file",
		Example: `  snapsight resolve src/__tests__/button.test.tsx --line 12 --character 24
  snapsight resolve button.test.js --offset 311 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, a, args[0], opts)
		},
	}

	cmd.Flags().IntVar(&opts.line, "line", -1, "0-based line of the cursor")
	cmd.Flags().IntVar(&opts.character, "character", -1, "0-based character of the cursor")
	cmd.Flags().IntVar(&opts.offset, "offset", -1, "Byte offset of the cursor")
	cmd.Flags().BoolVar(&opts.hover, "hover", false, "Print hover text instead of the raw snapshot")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the record, hover and definition as JSON")
	cmd.MarkFlagsRequiredTogether("line", "character")
	cmd.MarkFlagsMutuallyExclusive("offset", "line")
	cmd.MarkFlagsOneRequired("offset", "line")
	return cmd
}

func runResolve(cmd *cobra.Command, a *app, file string, opts resolveOptions) error {
	var pos lookup.Position
	switch {
	case opts.offset >= 0:
		pos = lookup.AtOffset(opts.offset)
	case opts.line >= 0 && opts.character >= 0:
		pos = lookup.AtLine(opts.line, opts.character)
	default:
		return errors.New("position must not be negative")
	}

	resolver, err := a.newResolver()
	if err != nil {
		return err
	}
	res, err := resolver.ResolveFile(cmd.Context(), file, pos)
	if err != nil {
		return err
	}
	if res == nil {
		return errNoSnapshot
	}

	out := cmd.OutOrStdout()
	switch {
	case opts.asJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case opts.hover:
		_, err = fmt.Fprintln(out, res.Hover)
	default:
		_, err = fmt.Fprintf(out, "%s\n%s\n", res.Record.Name, res.Record.Snapshot)
	}
	return err
}
