// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads optional catalog API keys from a directory of
// plain-text files. Each file is one secret: the filename is the key name
// and the trimmed contents are the value.
//
// Recognized files: ncbi-api-key, ncbi-email, semantic-scholar-api-key,
// google-books-api-key.
package secrets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/paper-fetch/pkg/types"
)

// DefaultDir is where the CLI looks for secrets.
const DefaultDir = ".secrets"

// Recognized secret file names.
const (
	NCBIAPIKey            = "ncbi-api-key"
	NCBIEmail             = "ncbi-email"
	SemanticScholarAPIKey = "semantic-scholar-api-key"
	GoogleBooksAPIKey     = "google-books-api-key"
)

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory yields an empty map. Unreadable files are
// reported on warn and skipped.
func Load(dir string, warn io.Writer) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(warn, "warning: could not read secret %s: %v\n", name, err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Apply fills empty catalog credentials in cfg from s. Values already set
// by config or environment win. It returns the names applied, sorted.
func Apply(cfg *types.SourcesConfig, s map[string]string) []string {
	targets := map[string]*string{
		NCBIAPIKey:            &cfg.NCBIAPIKey,
		NCBIEmail:             &cfg.Mailto,
		SemanticScholarAPIKey: &cfg.SemanticScholarAPIKey,
		GoogleBooksAPIKey:     &cfg.GoogleBooksAPIKey,
	}

	var applied []string
	for name, dst := range targets {
		if v, ok := s[name]; ok && *dst == "" {
			*dst = v
			applied = append(applied, name)
		}
	}
	sort.Strings(applied)
	return applied
}
