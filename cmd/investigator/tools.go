// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/investigator/internal/tools"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List registered tools and the domains that see them",
	Long: `Tools lists every tool an investigation can call. With --domain, only
the tools offered to experiments in those domains are shown: universal tools
plus tools tagged with at least one of the given domains.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		domains, _ := cmd.Flags().GetStringSlice("domain")
		reg, err := buildRegistry(appConfig.Search, nil)
		if err != nil {
			return err
		}
		names := reg.Names()
		if len(domains) > 0 {
			names = reg.ListForDomain(domains)
		}
		formatTools(cmd.OutOrStdout(), reg, names)
		return nil
	},
}

func formatTools(w io.Writer, reg *tools.Registry, names []string) {
	fmt.Fprintf(w, "%-24s  %-30s  %s\n", "Tool", "Domains", "Description")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, name := range names {
		domains := "all"
		if tags := reg.Tags(name); len(tags) > 0 {
			domains = strings.Join(tags, ",")
		}
		fmt.Fprintf(w, "%-24s  %-30s  %s\n", name, domains, clip(reg.Description(name), 56))
	}
}

func init() {
	toolsCmd.Flags().StringSlice("domain", nil, "show only tools visible to these domain tags")
	rootCmd.AddCommand(toolsCmd)
}
