package static_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyrhttp/zephyr"
	"github.com/zephyrhttp/zephyr/core/static"
)

// newSite builds a directory tree with a few known files and returns its root.
func newSite(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hello world"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "about.html"), []byte("<h1>about</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".secret"), []byte("shh"), 0o644))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "index.html"), []byte("docs index"), 0o644))

	return root
}

func newApp(t *testing.T, root string, opts ...static.Option) *zephyr.App {
	t.Helper()
	app := zephyr.New()
	app.Use(static.Must(root, opts...))
	return app
}

func do(app *zephyr.App, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	t.Run("rejects relative root", func(t *testing.T) {
		t.Parallel()
		_, err := static.New("public")
		require.ErrorIs(t, err, static.ErrRootRequired)
	})

	t.Run("rejects missing root", func(t *testing.T) {
		t.Parallel()
		_, err := static.New(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
	})

	t.Run("rejects file as root", func(t *testing.T) {
		t.Parallel()
		root := newSite(t)
		_, err := static.New(filepath.Join(root, "hello.txt"))
		require.ErrorIs(t, err, static.ErrRootNotDirectory)
	})

	t.Run("must panics on error", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { static.Must("relative") })
	})
}

func TestServeFile(t *testing.T) {
	t.Parallel()

	app := newApp(t, newSite(t))

	t.Run("full body with validators", func(t *testing.T) {
		t.Parallel()

		rec := do(app, http.MethodGet, "/hello.txt", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "hello world", rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
		assert.Equal(t, "11", rec.Header().Get("Content-Length"))
		assert.NotEmpty(t, rec.Header().Get("Last-Modified"))

		etag := rec.Header().Get("ETag")
		require.NotEmpty(t, etag)
		assert.Equal(t, byte('"'), etag[0])

		// Same size and mtime produce the identical validator.
		again := do(app, http.MethodGet, "/hello.txt", nil)
		assert.Equal(t, etag, again.Header().Get("ETag"))
	})

	t.Run("head sends headers only", func(t *testing.T) {
		t.Parallel()

		rec := do(app, http.MethodHead, "/hello.txt", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "11", rec.Header().Get("Content-Length"))
		assert.Empty(t, rec.Body.String())
	})

	t.Run("missing file yields 404", func(t *testing.T) {
		t.Parallel()

		rec := do(app, http.MethodGet, "/nope.txt", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("other methods pass through", func(t *testing.T) {
		t.Parallel()

		rec := do(app, http.MethodPost, "/hello.txt", nil)
		// No route matches, so the pipeline answers its own 404.
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	})
}

func TestTraversalGuard(t *testing.T) {
	t.Parallel()

	app := newApp(t, newSite(t), static.WithPrefix("/static"))

	rec := do(app, http.MethodGet, "/static/../etc/passwd", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(app, http.MethodGet, "/static/..\\..\\etc/passwd", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// A prefixed request without traversal still works.
	rec = do(app, http.MethodGet, "/static/hello.txt", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Outside the prefix the middleware steps aside.
	rec = do(app, http.MethodGet, "/hello.txt", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRangeRequests(t *testing.T) {
	t.Parallel()

	app := newApp(t, newSite(t))

	t.Run("closed range", func(t *testing.T) {
		t.Parallel()

		rec := do(app, http.MethodGet, "/hello.txt", http.Header{"Range": {"bytes=0-4"}})
		assert.Equal(t, http.StatusPartialContent, rec.Code)
		assert.Equal(t, "hello", rec.Body.String())
		assert.Equal(t, "bytes 0-4/11", rec.Header().Get("Content-Range"))
		assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
		assert.Equal(t, "5", rec.Header().Get("Content-Length"))
	})

	t.Run("open-ended range", func(t *testing.T) {
		t.Parallel()

		rec := do(app, http.MethodGet, "/hello.txt", http.Header{"Range": {"bytes=6-"}})
		assert.Equal(t, http.StatusPartialContent, rec.Code)
		assert.Equal(t, "world", rec.Body.String())
		assert.Equal(t, "bytes 6-10/11", rec.Header().Get("Content-Range"))
	})

	t.Run("suffix range", func(t *testing.T) {
		t.Parallel()

		rec := do(app, http.MethodGet, "/hello.txt", http.Header{"Range": {"bytes=-5"}})
		assert.Equal(t, http.StatusPartialContent, rec.Code)
		assert.Equal(t, "world", rec.Body.String())
	})

	t.Run("end clamped to size", func(t *testing.T) {
		t.Parallel()

		rec := do(app, http.MethodGet, "/hello.txt", http.Header{"Range": {"bytes=6-999"}})
		assert.Equal(t, http.StatusPartialContent, rec.Code)
		assert.Equal(t, "world", rec.Body.String())
		assert.Equal(t, "bytes 6-10/11", rec.Header().Get("Content-Range"))
	})

	t.Run("start beyond size is unsatisfiable", func(t *testing.T) {
		t.Parallel()

		rec := do(app, http.MethodGet, "/hello.txt", http.Header{"Range": {"bytes=20-25"}})
		assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code)
		assert.Equal(t, "bytes */11", rec.Header().Get("Content-Range"))
	})

	t.Run("malformed range is unsatisfiable", func(t *testing.T) {
		t.Parallel()

		rec := do(app, http.MethodGet, "/hello.txt", http.Header{"Range": {"bytes=abc"}})
		assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code)
	})
}

func TestConditionalRequests(t *testing.T) {
	t.Parallel()

	app := newApp(t, newSite(t))

	t.Run("if-none-match", func(t *testing.T) {
		t.Parallel()

		first := do(app, http.MethodGet, "/hello.txt", nil)
		etag := first.Header().Get("ETag")
		require.NotEmpty(t, etag)

		rec := do(app, http.MethodGet, "/hello.txt", http.Header{"If-None-Match": {etag}})
		assert.Equal(t, http.StatusNotModified, rec.Code)
		assert.Empty(t, rec.Body.String())
		assert.Equal(t, etag, rec.Header().Get("ETag"))

		rec = do(app, http.MethodGet, "/hello.txt", http.Header{"If-None-Match": {`"stale", ` + etag}})
		assert.Equal(t, http.StatusNotModified, rec.Code)

		rec = do(app, http.MethodGet, "/hello.txt", http.Header{"If-None-Match": {`"stale"`}})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("if-modified-since", func(t *testing.T) {
		t.Parallel()

		first := do(app, http.MethodGet, "/hello.txt", nil)
		lastModified := first.Header().Get("Last-Modified")
		require.NotEmpty(t, lastModified)

		rec := do(app, http.MethodGet, "/hello.txt", http.Header{"If-Modified-Since": {lastModified}})
		assert.Equal(t, http.StatusNotModified, rec.Code)

		rec = do(app, http.MethodGet, "/hello.txt",
			http.Header{"If-Modified-Since": {"Mon, 02 Jan 2006 15:04:05 GMT"}})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestDirectories(t *testing.T) {
	t.Parallel()

	t.Run("redirects to trailing slash", func(t *testing.T) {
		t.Parallel()

		app := newApp(t, newSite(t))
		rec := do(app, http.MethodGet, "/docs?x=1", nil)
		assert.Equal(t, http.StatusMovedPermanently, rec.Code)
		assert.Equal(t, "/docs/?x=1", rec.Header().Get("Location"))
	})

	t.Run("serves the index file", func(t *testing.T) {
		t.Parallel()

		app := newApp(t, newSite(t))
		rec := do(app, http.MethodGet, "/docs/", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "docs index", rec.Body.String())
	})

	t.Run("no index means 403", func(t *testing.T) {
		t.Parallel()

		app := newApp(t, newSite(t), static.WithIndex(""))
		rec := do(app, http.MethodGet, "/docs/", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestDotfilesPolicy(t *testing.T) {
	t.Parallel()

	t.Run("ignored by default", func(t *testing.T) {
		t.Parallel()

		app := newApp(t, newSite(t))
		rec := do(app, http.MethodGet, "/.secret", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("deny answers 403", func(t *testing.T) {
		t.Parallel()

		app := newApp(t, newSite(t), static.WithDotfiles(static.DotfilesDeny))
		rec := do(app, http.MethodGet, "/.secret", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("allow serves the file", func(t *testing.T) {
		t.Parallel()

		app := newApp(t, newSite(t), static.WithDotfiles(static.DotfilesAllow))
		rec := do(app, http.MethodGet, "/.secret", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "shh", rec.Body.String())
	})
}

func TestExtensionsFallback(t *testing.T) {
	t.Parallel()

	app := newApp(t, newSite(t), static.WithExtensions("html"))

	rec := do(app, http.MethodGet, "/about", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<h1>about</h1>", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestFallthrough(t *testing.T) {
	t.Parallel()

	app := zephyr.New()
	app.Use(static.Must(newSite(t), static.WithFallthrough()))
	app.Get("/app/:page", func(c *zephyr.Context) error {
		c.Respond("dynamic " + c.Param("page"))
		return nil
	})

	rec := do(app, http.MethodGet, "/app/dashboard", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dynamic dashboard", rec.Body.String())

	rec = do(app, http.MethodGet, "/hello.txt", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello world", rec.Body.String())
}

func TestCacheControl(t *testing.T) {
	t.Parallel()

	t.Run("max age", func(t *testing.T) {
		t.Parallel()

		app := newApp(t, newSite(t), static.WithMaxAge(3600))
		rec := do(app, http.MethodGet, "/hello.txt", nil)
		assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	})

	t.Run("immutable", func(t *testing.T) {
		t.Parallel()

		app := newApp(t, newSite(t), static.WithMaxAge(3600), static.WithImmutable())
		rec := do(app, http.MethodGet, "/hello.txt", nil)
		assert.Equal(t, "public, max-age=3600, immutable", rec.Header().Get("Cache-Control"))
	})

	t.Run("set headers hook", func(t *testing.T) {
		t.Parallel()

		app := newApp(t, newSite(t), static.WithSetHeaders(func(c *zephyr.Context, absPath string, info os.FileInfo) {
			c.SetHeader("X-Served-From", filepath.Base(absPath))
		}))
		rec := do(app, http.MethodGet, "/hello.txt", nil)
		assert.Equal(t, "hello.txt", rec.Header().Get("X-Served-From"))
	})
}
