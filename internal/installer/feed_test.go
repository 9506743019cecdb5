package installer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func releaseServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/msys2/msys2-installer/releases/latest", r.URL.Path)
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func testFeed(srv *httptest.Server) *githubFeed {
	return &githubFeed{
		client:      srv.Client(),
		repo:        "msys2/msys2-installer",
		assetSuffix: ".exe",
		baseURL:     srv.URL,
	}
}

func TestLatestPicksAssetAndChecksum(t *testing.T) {
	srv := releaseServer(t, `{
		"tag_name": "2024-01-13",
		"assets": [
			{"name": "msys2-x86_64-20240113.exe.sig", "browser_download_url": "https://example.com/sig"},
			{"name": "msys2-x86_64-20240113.exe", "browser_download_url": "https://example.com/installer"},
			{"name": "msys2-x86_64-20240113.exe.sha256", "browser_download_url": "https://example.com/checksum"}
		]
	}`, http.StatusOK)

	rel, err := testFeed(srv).Latest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2024-01-13", rel.Version)
	assert.Equal(t, "https://example.com/installer", rel.AssetURL)
	assert.Equal(t, "https://example.com/checksum", rel.ChecksumURL)
}

func TestLatestMissingAsset(t *testing.T) {
	srv := releaseServer(t, `{"tag_name": "v1", "assets": []}`, http.StatusOK)

	_, err := testFeed(srv).Latest(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .exe asset")
}

func TestLatestMissingChecksum(t *testing.T) {
	srv := releaseServer(t, `{
		"tag_name": "v1",
		"assets": [{"name": "setup.exe", "browser_download_url": "https://example.com/installer"}]
	}`, http.StatusOK)

	_, err := testFeed(srv).Latest(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum")
}

func TestLatestHTTPError(t *testing.T) {
	srv := releaseServer(t, `rate limited`, http.StatusForbidden)

	_, err := testFeed(srv).Latest(context.Background())
	assert.Error(t, err)
}
