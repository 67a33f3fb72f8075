package update

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAPI = "https://api.github.com"
	repo       = "rusiaaaaaaa/ai-news-bot"
)

// Result holds the outcome of a version check.
type Result struct {
	LatestVersion string
	URL           string
}

type ghRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Checker looks up the latest published release.
type Checker struct {
	// APIBase overrides the GitHub API root.
	APIBase string
	Client  *http.Client
}

// Check queries the GitHub Releases API to see if a newer version is available.
// Returns nil on any error (non-fatal).
func Check(ctx context.Context, currentVersion string) *Result {
	return (&Checker{}).Check(ctx, currentVersion)
}

func (c *Checker) Check(ctx context.Context, currentVersion string) *Result {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	base := c.APIBase
	if base == "" {
		base = defaultAPI
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	url := strings.TrimRight(base, "/") + "/repos/" + repo + "/releases/latest"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var release ghRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	current := strings.TrimPrefix(currentVersion, "v")

	// Development builds have nothing to compare against
	if latest == "" || latest == current || current == "dev" {
		return nil
	}

	return &Result{LatestVersion: latest, URL: release.HTMLURL}
}
