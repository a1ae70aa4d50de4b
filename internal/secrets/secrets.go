// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API credentials from a directory of plain-text files.
// Each file holds one secret: the filename is the key and the trimmed file
// contents are the value.
//
// Supported key file: opencitations-access-token.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OpenCitationsToken is the key under which the OpenCitations access token
// is looked up.
const OpenCitationsToken = "opencitations-access-token"

// Load reads every regular file in dir into a key/value map. A missing
// directory is not an error; Load returns an empty map. Dotfiles and
// subdirectories are ignored, and an unreadable file produces a warning on
// stderr rather than aborting.
func Load(dir string) (map[string]string, error) {
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
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}
