// Copyright Caddis Lab, 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text
// files and from a .env file. Each file in the directory represents one secret:
// the filename is the key name and the file contents (trimmed) are the value.
//
// Supported key files: scopus-api-key, scopus-inst-token,
// semantic-scholar-api-key, openalex-email, openai-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
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
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// envKeys maps environment variable names to secret key names, matching the
// .env conventions of the original data collection.
var envKeys = map[string]string{
	"SCOPUS_API_KEY":           "scopus-api-key",
	"SCOPUS_INST_TOKEN":        "scopus-inst-token",
	"SEMANTIC_SCHOLAR_API_KEY": "semantic-scholar-api-key",
	"OPENALEX_EMAIL":           "openalex-email",
	"OPENAI_API_KEY":           "openai-api-key",
}

// LoadDotenv reads a .env file and merges recognized variables into secrets,
// without overwriting values already present. A missing .env file is not an
// error. Values already exported in the process environment also apply.
func LoadDotenv(path string, secrets map[string]string) error {
	vars := map[string]string{}
	if _, err := os.Stat(path); err == nil {
		vars, err = godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	for env, key := range envKeys {
		if _, ok := secrets[key]; ok {
			continue
		}
		if v := strings.TrimSpace(vars[env]); v != "" {
			secrets[key] = v
			continue
		}
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			secrets[key] = v
		}
	}
	return nil
}
