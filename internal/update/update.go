// Package update checks GitHub for a newer claudebar release.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	Repo           = "tnunamak/claudebar"
	DefaultURL     = "https://api.github.com/repos/" + Repo + "/releases/latest"
	defaultTimeout = 15 * time.Second
)

type Release struct {
	Version string
	URL     string
}

type ghRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Checker queries a GitHub "latest release" endpoint.
type Checker struct {
	URL        string
	HTTPClient *http.Client
}

func NewChecker() *Checker {
	return &Checker{
		URL:        DefaultURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Check returns the latest release if it is newer than current, or nil
// when already up to date. Development builds never report an update.
func (c *Checker) Check(ctx context.Context, current string) (*Release, error) {
	if current == "" || current == "dev" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("check update: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("check update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("check update: GitHub API returned %d", resp.StatusCode)
	}

	var rel ghRelease
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&rel); err != nil {
		return nil, fmt.Errorf("check update: %w", err)
	}
	if rel.TagName == "" || !Newer(rel.TagName, current) {
		return nil, nil
	}

	url := fmt.Sprintf(
		"https://github.com/%s/releases/download/%s/claudebar-%s-%s",
		Repo, rel.TagName, runtime.GOOS, runtime.GOARCH,
	)
	return &Release{Version: rel.TagName, URL: url}, nil
}

// Newer reports whether version a sorts after b. Versions are compared
// numerically by dot-separated component; anything after a '-' is ignored.
// Unparseable versions fall back to "differs means newer".
func Newer(a, b string) bool {
	pa, okA := parseVersion(a)
	pb, okB := parseVersion(b)
	if !okA || !okB {
		return StripV(a) != StripV(b)
	}
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var x, y int
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		if x != y {
			return x > y
		}
	}
	return false
}

func parseVersion(v string) ([]int, bool) {
	v = StripV(v)
	if i := strings.IndexByte(v, '-'); i >= 0 {
		v = v[:i]
	}
	if v == "" {
		return nil, false
	}
	parts := strings.Split(v, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

// StripV removes a leading "v" prefix for display: "v1.2.3" -> "1.2.3".
func StripV(version string) string {
	return strings.TrimPrefix(version, "v")
}
