package static

import (
	"fmt"
	"hash/fnv"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zephyrhttp/zephyr"
)

type handler struct {
	config
}

// New builds a file-serving middleware rooted at an absolute directory.
// Requests outside the configured prefix, and methods other than GET and
// HEAD, fall through to the next middleware. The root must exist when New is
// called.
func New(root string, opts ...Option) (zephyr.Middleware, error) {
	if root == "" || !filepath.IsAbs(root) {
		return nil, ErrRootRequired
	}

	cfg := defaultConfig(filepath.Clean(root))
	for _, opt := range opts {
		opt(&cfg)
	}

	info, err := os.Stat(cfg.root)
	if err != nil {
		return nil, fmt.Errorf("static: cannot access root %s: %w", cfg.root, err)
	}
	if !info.IsDir() {
		return nil, ErrRootNotDirectory
	}

	h := &handler{config: cfg}
	return h.serve, nil
}

// Must is New but panics on error. Intended for startup wiring.
func Must(root string, opts ...Option) zephyr.Middleware {
	mw, err := New(root, opts...)
	if err != nil {
		panic(err)
	}
	return mw
}

func (h *handler) serve(c *zephyr.Context, next zephyr.Next) error {
	if c.Method() != http.MethodGet && c.Method() != http.MethodHead {
		return next()
	}

	urlPath := c.Path()
	rel := urlPath
	if h.prefix != "" {
		if urlPath != h.prefix && !strings.HasPrefix(urlPath, h.prefix+"/") {
			return next()
		}
		rel = strings.TrimPrefix(urlPath, h.prefix)
	}
	if rel == "" {
		rel = "/"
	}

	// net/http has already percent-decoded the path, so a surviving ".."
	// element is a traversal attempt regardless of how it was encoded.
	if containsDotDot(rel) {
		return h.reject(c, next, http.StatusForbidden)
	}

	cleanRel := path.Clean("/" + rel)
	fsPath := filepath.Join(h.root, filepath.FromSlash(cleanRel))
	if fsPath != h.root && !strings.HasPrefix(fsPath, h.root+string(filepath.Separator)) {
		return h.reject(c, next, http.StatusForbidden)
	}

	info, err := os.Stat(fsPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return h.internalError(c, fsPath, err)
		}
		fsPath, info = h.tryExtensions(fsPath, rel)
		if info == nil {
			return h.reject(c, next, http.StatusNotFound)
		}
	}

	if info.IsDir() {
		if h.redirect && !strings.HasSuffix(urlPath, "/") {
			location := urlPath + "/"
			if q := c.Request().URL.RawQuery; q != "" {
				location += "?" + q
			}
			c.SetHeader("Location", location)
			c.ResponseWriter().WriteHeader(http.StatusMovedPermanently)
			return nil
		}
		if h.index == "" {
			return h.reject(c, next, http.StatusForbidden)
		}
		indexPath := filepath.Join(fsPath, h.index)
		indexInfo, err := os.Stat(indexPath)
		if err != nil || indexInfo.IsDir() {
			return h.reject(c, next, http.StatusForbidden)
		}
		fsPath, info = indexPath, indexInfo
	}

	if h.dotfiles != DotfilesAllow && hasDotElement(cleanRel) {
		if h.dotfiles == DotfilesDeny {
			return h.reject(c, next, http.StatusForbidden)
		}
		return h.reject(c, next, http.StatusNotFound)
	}

	return h.sendFile(c, fsPath, info)
}

// tryExtensions appends each configured extension to the missing path and
// returns the first regular file that exists.
func (h *handler) tryExtensions(fsPath, rel string) (string, fs.FileInfo) {
	if len(h.extensions) == 0 || strings.HasSuffix(rel, "/") {
		return fsPath, nil
	}
	for _, ext := range h.extensions {
		candidate := fsPath + "." + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, info
		}
	}
	return fsPath, nil
}

func (h *handler) sendFile(c *zephyr.Context, absPath string, info fs.FileInfo) error {
	w := c.ResponseWriter()
	size := info.Size()
	mtime := info.ModTime()
	etag := computeETag(size, mtime)

	ctype := mime.TypeByExtension(filepath.Ext(absPath))
	if ctype == "" {
		ctype = "application/octet-stream"
	}

	headers := w.Header()
	headers.Set("Content-Type", ctype)
	headers.Set("Last-Modified", mtime.UTC().Format(http.TimeFormat))
	headers.Set("ETag", etag)
	headers.Set("Accept-Ranges", "bytes")
	if h.maxAge > 0 {
		cacheControl := "public, max-age=" + strconv.Itoa(h.maxAge)
		if h.immutable {
			cacheControl += ", immutable"
		}
		headers.Set("Cache-Control", cacheControl)
	}
	if h.setHeaders != nil {
		h.setHeaders(c, absPath, info)
	}

	if notModified(c.Request(), etag, mtime) {
		headers.Del("Content-Type")
		headers.Del("Content-Length")
		w.WriteHeader(http.StatusNotModified)
		return nil
	}

	start, length, status, ok := resolveRange(c.Header("Range"), size)
	if !ok {
		headers.Set("Content-Range", "bytes */"+strconv.FormatInt(size, 10))
		headers.Del("Content-Type")
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return nil
	}
	if status == http.StatusPartialContent {
		headers.Set("Content-Range",
			fmt.Sprintf("bytes %d-%d/%d", start, start+length-1, size))
	}
	headers.Set("Content-Length", strconv.FormatInt(length, 10))

	if c.Method() == http.MethodHead {
		w.WriteHeader(status)
		return nil
	}

	f, err := os.Open(absPath)
	if err != nil {
		return h.internalError(c, absPath, err)
	}
	defer f.Close()

	w.WriteHeader(status)
	if _, err := io.Copy(w, io.NewSectionReader(f, start, length)); err != nil {
		// Headers are already out; the response can only be abandoned.
		h.logger.Error("file copy aborted",
			slog.String("path", absPath), slog.Any("error", err))
	}
	return nil
}

// reject answers a 4xx outcome, or defers to the next middleware when
// fallthrough is enabled.
func (h *handler) reject(c *zephyr.Context, next zephyr.Next, status int) error {
	if h.fallthru {
		return next()
	}
	return c.Status(status).Text(http.StatusText(status))
}

func (h *handler) internalError(c *zephyr.Context, absPath string, err error) error {
	h.logger.Error("filesystem failure",
		slog.String("path", absPath), slog.Any("error", err))
	if c.Written() {
		return nil
	}
	return c.Status(http.StatusInternalServerError).
		Text(http.StatusText(http.StatusInternalServerError))
}

// notModified evaluates the conditional headers. If-None-Match takes
// precedence over If-Modified-Since.
func notModified(r *http.Request, etag string, mtime time.Time) bool {
	if inm := r.Header.Get("If-None-Match"); inm != "" {
		if inm == "*" {
			return true
		}
		for _, candidate := range strings.Split(inm, ",") {
			if strings.TrimSpace(candidate) == etag {
				return true
			}
		}
		return false
	}

	ims := r.Header.Get("If-Modified-Since")
	if ims == "" {
		return false
	}
	t, err := http.ParseTime(ims)
	if err != nil {
		return false
	}
	// Last-Modified has second precision, so compare at second granularity.
	return !mtime.Truncate(time.Second).After(t)
}

// resolveRange interprets a single bytes= range against the file size. It
// returns the byte window to serve and the response status; ok is false for
// a present but unsatisfiable or malformed range.
func resolveRange(header string, size int64) (start, length int64, status int, ok bool) {
	if header == "" {
		return 0, size, http.StatusOK, true
	}
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found || strings.Contains(spec, ",") {
		return 0, 0, 0, false
	}

	first, last, found := strings.Cut(strings.TrimSpace(spec), "-")
	if !found {
		return 0, 0, 0, false
	}

	if first == "" {
		// Suffix form: last n bytes.
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 || size == 0 {
			return 0, 0, 0, false
		}
		if n > size {
			n = size
		}
		return size - n, n, http.StatusPartialContent, true
	}

	begin, err := strconv.ParseInt(first, 10, 64)
	if err != nil || begin < 0 || begin >= size {
		return 0, 0, 0, false
	}

	end := size - 1
	if last != "" {
		end, err = strconv.ParseInt(last, 10, 64)
		if err != nil || end < begin {
			return 0, 0, 0, false
		}
		if end >= size {
			end = size - 1
		}
	}
	return begin, end - begin + 1, http.StatusPartialContent, true
}

// computeETag derives the validator from the file size and modification
// time: a quoted 32-bit FNV-1a hash over "size-mtimeMillis".
func computeETag(size int64, mtime time.Time) string {
	sum := fnv.New32a()
	fmt.Fprintf(sum, "%d-%d", size, mtime.UnixMilli())
	return `"` + strconv.FormatUint(uint64(sum.Sum32()), 16) + `"`
}

// containsDotDot reports whether any slash-separated element of the path is
// "..".
func containsDotDot(v string) bool {
	if !strings.Contains(v, "..") {
		return false
	}
	for _, element := range strings.FieldsFunc(v, isSlashRune) {
		if element == ".." {
			return true
		}
	}
	return false
}

func isSlashRune(r rune) bool { return r == '/' || r == '\\' }

// hasDotElement reports whether any element of the cleaned path starts with
// a dot, e.g. /.env or /.git/config.
func hasDotElement(cleanRel string) bool {
	for _, element := range strings.Split(cleanRel, "/") {
		if len(element) > 1 && element[0] == '.' {
			return true
		}
	}
	return false
}
