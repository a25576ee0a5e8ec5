//go:build mage

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Investigate builds the CLI and runs an investigation on $PROMPT.
func Investigate() error {
	mg.Deps(Build)
	prompt := os.Getenv("PROMPT")
	if prompt == "" {
		return fmt.Errorf("PROMPT is not set")
	}
	return sh.RunV(binPath, "run", "--stream", "--prompt", prompt)
}

// Search builds the CLI and runs a literature search on $QUERY.
func Search() error {
	mg.Deps(Build)
	query := os.Getenv("QUERY")
	if query == "" {
		return fmt.Errorf("QUERY is not set")
	}
	return sh.RunV(binPath, "search", "--recency-bias", query)
}
