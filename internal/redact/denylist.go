package redact

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// LoadDenylist reads names to redact, one per line. Blank lines are skipped and
// duplicates are dropped case-insensitively.
//
// A missing file yields no names and no error; callers decide whether to warn.
// An empty path is treated as a missing file.
func LoadDenylist(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path) //nolint:gosec // path comes from user configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open denylist: %w", err)
	}
	defer f.Close()

	names, err := scanNames(bufio.NewScanner(f))
	if err != nil {
		return nil, err
	}
	return mergeNames(names), nil
}

func scanNames(sc *bufio.Scanner) ([]string, error) {
	var names []string
	for sc.Scan() {
		if name := strings.TrimSpace(sc.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read denylist: %w", err)
	}
	return names, nil
}

// mergeNames drops blank and case-insensitively repeated names, keeping first spellings.
func mergeNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}
