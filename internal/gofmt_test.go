package internal

import (
	"bytes"
	"go/format"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestGofmtCompliance verifies that all Go source files in the project
// are properly formatted according to gofmt standards.
//
// This test exists to catch formatting issues before code is committed.
// If this test fails, run: gofmt -w .
func TestGofmtCompliance(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}

	// Navigate to project root from internal/
	projectRoot := filepath.Dir(wd)
	if filepath.Base(wd) != "internal" {
		projectRoot = wd
	}

	var unformattedFiles []string

	err = filepath.Walk(projectRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			name := info.Name()
			if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}

		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		formatted, err := format.Source(src)
		if err != nil {
			// Files that fail to parse are caught by the compiler, not here.
			return nil
		}
		if !bytes.Equal(src, formatted) {
			rel, relErr := filepath.Rel(projectRoot, path)
			if relErr != nil {
				rel = path
			}
			unformattedFiles = append(unformattedFiles, rel)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to walk project tree: %v", err)
	}

	if len(unformattedFiles) > 0 {
		t.Errorf("The following files are not gofmt-formatted:\n  %s\nRun: gofmt -w .",
			strings.Join(unformattedFiles, "\n  "))
	}
}
