// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT

// validate is a CLI tool to validate ibpcdc training specs and service
// configuration files.
//
// Usage:
//
//	validate -f specs_train_PCN_INTE.json
//	validate --file specs_train_PCN_INTE.yaml
//	validate -c ibpcdc.yaml
//
// Exit codes:
//   - 0: File is valid
//   - 1: File is invalid (parse, schema or validation error)
//   - 2: Usage error (missing or conflicting flags)
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ManuGH/ibpcdc/internal/config"
	"github.com/ManuGH/ibpcdc/internal/specs"
	"github.com/ManuGH/ibpcdc/internal/version"
)

func main() {
	var file, configFile string
	var showVersion bool

	flag.StringVar(&file, "file", "", "path to JSON or YAML training spec")
	flag.StringVar(&file, "f", "", "path to JSON or YAML training spec (shorthand)")
	flag.StringVar(&configFile, "config", "", "path to YAML service configuration file")
	flag.StringVar(&configFile, "c", "", "path to YAML service configuration file (shorthand)")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	if (file == "") == (configFile == "") {
		fmt.Fprintln(os.Stderr, "Error: exactly one of --file or --config is required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  validate -f specs_train_PCN_INTE.json")
		fmt.Fprintln(os.Stderr, "  validate -c ibpcdc.yaml")
		os.Exit(2)
	}

	if configFile != "" {
		os.Exit(validateConfig(configFile))
	}
	os.Exit(validateSpec(file))
}

func validateSpec(file string) int {
	// Strict decoding: unknown, missing and mistyped keys are rejected
	spec, err := specs.Load(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Spec error in %s:\n", file)
		printProblems(err)
		return 1
	}

	// Business rules
	if err := specs.Validate(spec); err != nil {
		fmt.Fprintf(os.Stderr, "Validation error in %s:\n", file)
		printProblems(err)
		return 1
	}

	fmt.Printf("✓ %s is valid (%s, %s)\n", file, spec.Tag, spec.Architecture())
	return 0
}

func validateConfig(file string) int {
	// Load validates as its last step
	if _, err := config.NewLoader(file, version.Version).Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error in %s:\n", file)
		fmt.Fprintf(os.Stderr, "  %v\n", err)
		return 1
	}
	fmt.Printf("✓ %s is valid\n", file)
	return 0
}

func printProblems(err error) {
	for _, p := range specs.Problems(err) {
		if p.Field == "" {
			fmt.Fprintf(os.Stderr, "  %s\n", p.Message)
			continue
		}
		fmt.Fprintf(os.Stderr, "  %s: %s\n", p.Field, p.Message)
	}
}
