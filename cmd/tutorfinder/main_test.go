package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorial_finder/internal/config"
	"tutorial_finder/internal/domain"
)

type backends struct {
	image       *httptest.Server
	description *httptest.Server
	search      *httptest.Server

	imageCalls       atomic.Int32
	descriptionCalls atomic.Int32
	searchCalls      atomic.Int32
	searchQuery      atomic.Value
}

func newBackends(t *testing.T, modelText string, searchStatus int) *backends {
	t.Helper()
	b := &backends{}

	b.image = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.imageCalls.Add(1)
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xFF, 0xD8, 0xFF})
	}))
	t.Cleanup(b.image.Close)

	b.description = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.descriptionCalls.Add(1)
		if modelText == "" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		content, _ := json.Marshal(modelText)
		fmt.Fprintf(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":%s}}]}`, content)
	}))
	t.Cleanup(b.description.Close)

	b.search = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.searchCalls.Add(1)
		var req struct {
			Query string `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.searchQuery.Store(req.Query)

		if searchStatus != http.StatusOK {
			w.WriteHeader(searchStatus)
			return
		}
		_, _ = w.Write([]byte(`{"contents":{"twoColumnSearchResultsRenderer":{"primaryContents":{"sectionListRenderer":{"contents":[{"itemSectionRenderer":{"contents":[
			{"videoRenderer":{"videoId":"old","title":{"runs":[{"text":"How to crochet a bunny, the classic pattern"}]},"viewCountText":{"simpleText":"2,400,000 views"},"publishedTimeText":{"simpleText":"2 years ago"}}},
			{"videoRenderer":{"videoId":"new","title":{"runs":[{"text":"How to crochet a bunny in one evening"}]},"viewCountText":{"simpleText":"2,400,000 views"},"publishedTimeText":{"simpleText":"3 days ago"}}},
			{"videoRenderer":{"title":{"runs":[{"text":"broken"}]}}}
		]}}]}}}}}`))
	}))
	t.Cleanup(b.search.Close)

	return b
}

func (b *backends) config(t *testing.T, token string) string {
	t.Helper()
	body := fmt.Sprintf(`
log_level: error
description:
  base_url: %s
  token: %q
search:
  base_url: %s/youtubei/v1/search
  limit: 5
`, b.description.URL, token, b.search.URL)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}

func errorMessage(t *testing.T, stderr string) string {
	t.Helper()
	var payload errorPayload
	require.NoError(t, json.Unmarshal([]byte(lastLine(stderr)), &payload))
	return payload.Error
}

func TestRun_NoArguments(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(nil, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Empty(t, stdout.String())
	assert.Equal(t, msgNoImageURL, errorMessage(t, stderr.String()))
}

func TestRun_EndToEnd(t *testing.T) {
	b := newBackends(t, "```json\n"+`{"valid": true, "material": "crochet", "specific_object": "bunny", "context": "toy", "query": "crochet bunny toy"}`+"\n```", http.StatusOK)
	var stdout, stderr bytes.Buffer

	code := run([]string{"-config", b.config(t, "hf_test"), b.image.URL + "/bunny.jpg"}, &stdout, &stderr)

	require.Equal(t, 0, code)
	require.NotEmpty(t, stdout.String(), stderr.String())
	assert.Equal(t, int32(1), b.imageCalls.Load())

	var result domain.FinderResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))

	assert.Equal(t, "crochet bunny toy", result.ProductKeyword)
	assert.Equal(t, "crochet bunny toy tutorial", b.searchQuery.Load())
	require.Len(t, result.Tutorials, 2)
	assert.Equal(t, "https://www.youtube.com/watch?v=new", result.Tutorials[0].URL)
	assert.Equal(t, "https://www.youtube.com/watch?v=old", result.Tutorials[1].URL)
	assert.GreaterOrEqual(t, result.Tutorials[0].Score, result.Tutorials[1].Score)
	assert.Equal(t, 1.667, result.Tutorials[1].Score)
	assert.Equal(t, "crochet bunny toy", result.Tutorials[0].ProductName)
}

func TestRun_RejectedImage(t *testing.T) {
	b := newBackends(t, `{"valid": false, "reason": "a photo of a cat"}`, http.StatusOK)
	var stdout, stderr bytes.Buffer

	code := run([]string{"-config", b.config(t, "hf_test"), b.image.URL + "/cat.jpg"}, &stdout, &stderr)

	require.Equal(t, 0, code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &raw))
	assert.Equal(t, "", raw["product_keyword"])
	assert.Equal(t, []any{}, raw["tutorials"])
	assert.Equal(t, "a photo of a cat", raw["reason"])
	assert.Equal(t, int32(0), b.searchCalls.Load())
}

func TestRun_MalformedModelText(t *testing.T) {
	b := newBackends(t, "I think this is a crochet bunny!", http.StatusOK)
	var stdout, stderr bytes.Buffer

	code := run([]string{"-config", b.config(t, "hf_test"), b.image.URL + "/bunny.jpg"}, &stdout, &stderr)

	require.Equal(t, 0, code)

	var result domain.FinderResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
	assert.Empty(t, result.ProductKeyword)
	assert.NotNil(t, result.Tutorials)
	assert.Empty(t, result.Tutorials)
}

func TestRun_SearchBackendDown(t *testing.T) {
	b := newBackends(t, `{"valid": true, "query": "resin coaster tutorial"}`, http.StatusServiceUnavailable)
	var stdout, stderr bytes.Buffer

	code := run([]string{"-config", b.config(t, "hf_test"), b.image.URL + "/coaster.jpg"}, &stdout, &stderr)

	require.Equal(t, 0, code)

	var result domain.FinderResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
	assert.Equal(t, "resin coaster tutorial", result.ProductKeyword)
	assert.Empty(t, result.Tutorials)
}

func TestRun_MissingCredential(t *testing.T) {
	t.Setenv(config.TokenEnv, "")
	b := newBackends(t, `{"valid": true, "query": "q"}`, http.StatusOK)
	var stdout, stderr bytes.Buffer

	code := run([]string{"-config", b.config(t, ""), b.image.URL + "/bunny.jpg"}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Empty(t, stdout.String())
	assert.Equal(t, msgNoCredential, errorMessage(t, stderr.String()))
	assert.Equal(t, int32(0), b.imageCalls.Load())
	assert.Equal(t, int32(0), b.descriptionCalls.Load())
	assert.Equal(t, int32(0), b.searchCalls.Load())
}

func TestRun_DescriptionBackendFailure(t *testing.T) {
	b := newBackends(t, "", http.StatusOK)
	var stdout, stderr bytes.Buffer

	code := run([]string{"-config", b.config(t, "hf_test"), b.image.URL + "/bunny.jpg"}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Empty(t, stdout.String())
	assert.Equal(t, msgNoQuery, errorMessage(t, stderr.String()))
	assert.Equal(t, int32(0), b.searchCalls.Load())
}

func TestRun_BadConfigPath(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"-config", filepath.Join(t.TempDir(), "nope.yaml"), "https://example.com/a.jpg"}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, errorMessage(t, stderr.String()), "read config file")
}
