package warehouse

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// profileCredentials is the subset of a CLI profile we use.
type profileCredentials struct {
	Host  string
	Token string
}

// loadProfile reads host and token for the named profile from the CLI
// configuration file (~/.databrickscfg unless overridden). The file is a
// small INI-style document of [profile] sections with key = value lines.
func loadProfile(path, name string) (*profileCredentials, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".databrickscfg")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profile file: %w", err)
	}
	defer f.Close()

	var (
		creds      profileCredentials
		inSection  bool
		foundAny   bool
		sectionFor = strings.EqualFold
	)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section := strings.TrimSpace(line[1 : len(line)-1])
			inSection = sectionFor(section, name)
			if inSection {
				foundAny = true
			}
			continue
		}
		if !inSection {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		switch key {
		case "host":
			creds.Host = value
		case "token":
			creds.Token = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read profile file: %w", err)
	}
	if !foundAny {
		return nil, fmt.Errorf("profile %q not found in %s", name, path)
	}
	if creds.Token == "" {
		return nil, fmt.Errorf("profile %q has no token", name)
	}
	return &creds, nil
}
