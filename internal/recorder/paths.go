package recorder

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	rawSlugMax  = 50
	pathSlugMax = 60
)

var (
	nonAlnum     = regexp.MustCompile(`[^A-Za-z0-9]`)
	nonSlugChars = regexp.MustCompile(`[^A-Za-z0-9-]`)
)

// DeriveOutputPath maps a URL and its 0-based input position to the file the
// recording will be written to. It is deterministic and never fails: a URL
// that cannot be parsed falls back to a sanitized slug of the raw string.
//
// The index prefix is a zero-padded 3-digit rendering of index+1, so batches
// beyond 999 entries rely on the host/path slug for uniqueness.
func DeriveOutputPath(rawURL string, index int, outputDir string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		slug := truncate(nonAlnum.ReplaceAllString(rawURL, "-"), rawSlugMax)
		return filepath.Join(outputDir, fmt.Sprintf("%03d-%s.mp4", index+1, slug))
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	stem := fmt.Sprintf("%03d-%s", index+1, strings.ReplaceAll(host, ".", "-"))

	pathSlug := strings.Trim(u.Path, "/")
	pathSlug = truncate(nonSlugChars.ReplaceAllString(pathSlug, "-"), pathSlugMax)
	if pathSlug != "" {
		stem += "-" + pathSlug
	}
	return filepath.Join(outputDir, stem+".mp4")
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
