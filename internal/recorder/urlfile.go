package recorder

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoURLs indicates the URL list was empty after filtering blanks and
// comments.
var ErrNoURLs = errors.New("no URLs found")

// ParseURLList extracts target URLs from raw list contents: one URL per
// line, blank lines and lines whose first non-space character is '#' are
// skipped, everything else is trimmed and kept in input order.
func ParseURLList(data []byte) ([]string, error) {
	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	return urls, nil
}

// LoadURLFile reads a URL list from disk. A missing file and an empty list
// are both fatal to the batch before any job starts.
func LoadURLFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	urls, err := ParseURLList(data)
	if err != nil {
		return nil, fmt.Errorf("url list %s: %w", path, err)
	}
	return urls, nil
}
