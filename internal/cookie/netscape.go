// Package cookie implements the cookie collaborators of SPEC_FULL.md §4:
// Netscape cookie-jar file parsing for the static cookieFile path, and a
// lazily-created, idle-timing-out browser session for cookieRefreshBrowser,
// grounded on the teacher's internal/fetcher/browser.go and
// internal/automation/browser.go.
package cookie

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ParseNetscapeFile reads a Netscape-format cookie jar (the classic
// cookies.txt: domain, flag, path, secure, expiration, name, value,
// tab-separated) and renders it as a Cookie-header value.
func ParseNetscapeFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cookie: open %s: %w", path, err)
	}
	defer f.Close()

	var pairs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}
		name, value := fields[5], fields[6]
		if name == "" {
			continue
		}
		pairs = append(pairs, name+"="+value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cookie: read %s: %w", path, err)
	}

	return []byte(strings.Join(pairs, "; ")), nil
}
