package store

import (
	"os"
	"strings"
)

// ReadTrackedList reads the plain-text list of tracked package ids or
// package page urls, one per line. blank lines and lines starting
// with '#' are skipped.
func ReadTrackedList(path string) ([]string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []string
	for _, line := range strings.Split(string(contents), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	return entries, nil
}
