//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var (
	binDir  = "bin"
	appName = "dima-api"
)

var Default = Run

// Run starts the API server after tidying modules.
func Run() error {
	mg.Deps(Tidy)
	return sh.RunV("go", "run", "./cmd/api")
}

// Build compiles the API binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return err
	}
	out := filepath.Join(binDir, appName)
	fmt.Println("Building", out)
	return sh.RunV("go", "build", "-o", out, "./cmd/api")
}

// Test runs the whole test suite with race detection.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Tidy runs go mod tidy.
func Tidy() error {
	return sh.RunV("go", "mod", "tidy")
}

// Lint runs golangci-lint if installed.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Migrate applies the schema.
func Migrate() error {
	return sh.RunV("go", "run", "./cmd/tools/createtable")
}
