package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/perquire/internal/common"
)

const testPage = `<!DOCTYPE html>
<html><head><title>Agent Patterns</title></head>
<body>
<nav>Home | About | Archive</nav>
<header class="post-header"><h1 class="post-title">Agent Patterns</h1></header>
<div class="post-content">
<p>Task decomposition breaks a large goal into smaller steps.</p>
<p>Each step can then be planned and executed independently.</p>
</div>
<footer>Copyright notice and boilerplate</footer>
</body></html>`

func testConfig() common.SourcesConfig {
	return common.SourcesConfig{
		UserAgent:      "perquire-test",
		RequestTimeout: 5 * time.Second,
		MaxBodySize:    1024 * 1024,
	}
}

func TestFetch_ExtractsOnlySelectedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPage))
	}))
	defer srv.Close()

	fetcher := NewService(testConfig(), common.GetLogger())
	docs, err := fetcher.Fetch(context.Background(), []string{srv.URL}, ".post-content, .post-title, .post-header")

	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, srv.URL, doc.Source)
	assert.Equal(t, "Agent Patterns", doc.Title)
	assert.Contains(t, doc.Text, "Task decomposition")
	assert.Contains(t, doc.Text, "executed independently")
	assert.NotContains(t, doc.Text, "Home | About", "navigation must be filtered out")
	assert.NotContains(t, doc.Text, "Copyright notice", "footer must be filtered out")
}

func TestFetch_NoSelectorMatchYieldsNoDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPage))
	}))
	defer srv.Close()

	fetcher := NewService(testConfig(), common.GetLogger())
	docs, err := fetcher.Fetch(context.Background(), []string{srv.URL}, ".does-not-exist")

	require.NoError(t, err)
	assert.Empty(t, docs, "empty extraction is no usable content")
}

func TestFetch_FailingSourceIsSkippedNotFatal(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPage))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer bad.Close()

	fetcher := NewService(testConfig(), common.GetLogger())
	docs, err := fetcher.Fetch(context.Background(),
		[]string{bad.URL, good.URL, "http://127.0.0.1:1/unreachable"},
		".post-content")

	require.NoError(t, err, "per-source failures must not fail the batch")
	require.Len(t, docs, 1)
	assert.Equal(t, good.URL, docs[0].Source)
}

func TestFetch_AllSourcesFailingReturnsEmptyBatch(t *testing.T) {
	fetcher := NewService(testConfig(), common.GetLogger())
	docs, err := fetcher.Fetch(context.Background(), []string{"http://127.0.0.1:1/a", "http://127.0.0.1:1/b"}, ".post-content")

	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestFetch_LocalTextFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Notes\n\nLocal file content."), 0644))

	fetcher := NewService(testConfig(), common.GetLogger())
	docs, err := fetcher.Fetch(context.Background(), []string{path}, "")

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "notes.md", docs[0].Title)
	assert.Contains(t, docs[0].Text, "Local file content.")
}

func TestFetch_MissingLocalFileIsSkipped(t *testing.T) {
	fetcher := NewService(testConfig(), common.GetLogger())
	docs, err := fetcher.Fetch(context.Background(), []string{"/nonexistent/file.txt"}, "")

	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestFetch_SendsConfiguredUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(testPage))
	}))
	defer srv.Close()

	fetcher := NewService(testConfig(), common.GetLogger())
	_, err := fetcher.Fetch(context.Background(), []string{srv.URL}, ".post-content")

	require.NoError(t, err)
	assert.Equal(t, "perquire-test", gotUA)
}
