package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Mode selects how a downloaded payload is interpreted. It is passed
// explicitly on every call; a Client carries no per-session mode state.
type Mode int

const (
	// ModeText treats the payload as textual HTML. The response content
	// type is gated and the decoded text is written verbatim as bytes.
	ModeText Mode = iota
	// ModeBinary streams the payload to disk without interpretation.
	ModeBinary
)

// fallbackFilename is used when the resolved URL has no usable path segment.
const fallbackFilename = "tmp.bin"

// Client wraps http.Client and downloads remote resources into a working
// directory, with timeouts and limited retry on transient errors.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// Dir is the working directory all downloads are written into.
	Dir string
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// PerRequestTimeout bounds each request.
	PerRequestTimeout time.Duration
	// RedirectMaxHops caps redirect following to avoid loops. Zero means default (5).
	RedirectMaxHops int
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{Timeout: c.PerRequestTimeout, CheckRedirect: c.checkRedirectFunc()}
}

// Download issues a GET for rawURL and persists the response body under the
// client's working directory. The filename is the last non-empty path
// segment of the final URL after redirects, qualified with a short hash of
// the source URL if a file of that name already exists. It returns the
// absolute local path of the written file.
func (c *Client) Download(ctx context.Context, rawURL string, mode Mode) (string, error) {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		path, err := c.tryOnce(ctx, rawURL, mode)
		if err == nil {
			return path, nil
		}
		if !isTransient(err) || i == attempts-1 {
			return "", err
		}
		lastErr = err
		time.Sleep(time.Duration(i+1) * 200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return "", lastErr
}

func (c *Client) tryOnce(ctx context.Context, rawURL string, mode Mode) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	// Reject non-HTTP(S) schemes early
	if req.URL == nil || !isHTTPScheme(req.URL) {
		return "", fmt.Errorf("unsupported URL scheme: %q", rawURL)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	httpClient := c.getHTTPClient()
	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(req.Context(), c.PerRequestTimeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 && resp.StatusCode <= 599 {
		return "", fmt.Errorf("server error: %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if mode == ModeText {
		if ct := resp.Header.Get("Content-Type"); !isAllowedHTMLContentType(ct) {
			return "", fmt.Errorf("unsupported content type: %s", ct)
		}
	}

	// resp.Request.URL is the final URL after redirects; the filename is
	// derived from it, not from the URL the caller asked for.
	dest, err := c.destPath(resp.Request.URL, rawURL)
	if err != nil {
		return "", err
	}
	log.Debug().Str("url", rawURL).Str("file", dest).Msg("downloading")

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}
	switch mode {
	case ModeText:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			out.Close()
			return "", fmt.Errorf("read body: %w", err)
		}
		if _, err := out.Write(body); err != nil {
			out.Close()
			return "", fmt.Errorf("write %s: %w", dest, err)
		}
	default:
		if _, err := io.Copy(out, resp.Body); err != nil {
			out.Close()
			return "", fmt.Errorf("write %s: %w", dest, err)
		}
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", dest, err)
	}
	return dest, nil
}

// destPath derives the local destination for a download. Two distinct URLs
// can share a basename; the second one gets a short hash qualifier instead
// of silently overwriting the first.
func (c *Client) destPath(finalURL *url.URL, sourceURL string) (string, error) {
	name := deriveFilename(finalURL)
	dest := filepath.Join(c.Dir, name)
	if _, err := os.Stat(dest); err == nil {
		name = shortHash(sourceURL) + "-" + name
		dest = filepath.Join(c.Dir, name)
	}
	abs, err := filepath.Abs(dest)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", dest, err)
	}
	return abs, nil
}

// deriveFilename returns the last non-empty path segment of u, or a fixed
// placeholder when the path has none.
func deriveFilename(u *url.URL) string {
	if u == nil {
		return fallbackFilename
	}
	segments := strings.Split(u.Path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return fallbackFilename
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:4])
}

func isTransient(err error) bool {
	// Treat HTTP 5xx and context deadline as transient.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return strings.Contains(err.Error(), "server error:")
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		// Only allow http/https during redirects
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isAllowedHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	// allow text/html variants and application/xhtml+xml
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}
