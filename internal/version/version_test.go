package version

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		v1, v2 string
		want   int
	}{
		{"0.1.0", "0.1.0", 0},
		{"0.1.0", "0.2.0", -1},
		{"v1.0.0", "0.9.9", 1},
		{"1.2", "1.2.0", 0},
		{"1.0.0-beta", "1.0.0", 0},
		{"1.10.0", "1.9.0", 1},
	}
	for _, tt := range tests {
		t.Run(tt.v1+"_"+tt.v2, func(t *testing.T) {
			assert.Equal(t, tt.want, compareVersions(tt.v1, tt.v2))
		})
	}
}

func TestCheckForUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "launchfile/"+Version, r.Header.Get("User-Agent"))
		w.Write([]byte(`{"tag_name": "v99.0.0", "html_url": "https://example.test/release"}`))
	}))
	defer srv.Close()

	info := (&Checker{URL: srv.URL}).CheckForUpdates(context.Background())
	require.Empty(t, info.Error)
	assert.Equal(t, "99.0.0", info.LatestVersion)
	assert.True(t, info.UpdateAvailable)
	assert.Contains(t, info.UpdateMessage(), "v99.0.0")
}

func TestCheckForUpdatesReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	info := (&Checker{URL: srv.URL}).CheckForUpdates(context.Background())
	assert.Contains(t, info.Error, "404")
	assert.False(t, info.UpdateAvailable)
	assert.Empty(t, info.UpdateMessage())
}
