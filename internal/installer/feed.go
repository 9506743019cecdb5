package installer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Release is one resolvable toolchain release: the platform installer
// artifact plus its published checksum.
type Release struct {
	Version     string
	AssetURL    string
	ChecksumURL string
}

// Feed resolves the latest stable release of a toolchain distribution.
type Feed interface {
	Latest(ctx context.Context) (Release, error)
}

// githubFeed reads the releases/latest endpoint of a GitHub repository and
// picks the installer asset by suffix, expecting a sibling checksum asset
// named <asset>.sha256.
type githubFeed struct {
	client      *http.Client
	repo        string
	assetSuffix string
	baseURL     string
}

// NewGitHubFeed returns a Feed over a GitHub releases page.
func NewGitHubFeed(client *http.Client, repo, assetSuffix string) Feed {
	return &githubFeed{
		client:      client,
		repo:        repo,
		assetSuffix: assetSuffix,
		baseURL:     "https://api.github.com",
	}
}

type githubRelease struct {
	TagName string `json:"tag_name"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

func (f *githubFeed) Latest(ctx context.Context) (Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", f.baseURL, f.repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Release{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := f.client.Do(req)
	if err != nil {
		return Release{}, fmt.Errorf("query release feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Release{}, fmt.Errorf("release feed returned %s", resp.Status)
	}

	var rel githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return Release{}, fmt.Errorf("decode release feed: %w", err)
	}

	out := Release{Version: rel.TagName}

	for _, a := range rel.Assets {
		switch {
		case strings.HasSuffix(a.Name, f.assetSuffix+".sha256"):
			out.ChecksumURL = a.BrowserDownloadURL
		case strings.HasSuffix(a.Name, f.assetSuffix):
			out.AssetURL = a.BrowserDownloadURL
		}
	}

	if out.AssetURL == "" {
		return Release{}, fmt.Errorf("release %s has no %s asset", rel.TagName, f.assetSuffix)
	}

	if out.ChecksumURL == "" {
		return Release{}, fmt.Errorf("release %s publishes no checksum for %s", rel.TagName, f.assetSuffix)
	}

	return out, nil
}
