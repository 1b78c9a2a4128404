package mdq

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"mdqsync/internal/config"
	"mdqsync/internal/entity"
	"mdqsync/internal/fileutil"
	"mdqsync/internal/logging"
)

const (
	// SignedPrefix is the percent-encoded "{sha1}" that starts every signed
	// file name and every lookup path segment.
	SignedPrefix = "%7Bsha1%7D"

	maxBodyBytes = 64 << 20
)

// HTTPDoer describes the HTTP client used by the metadata query client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches signed entity metadata from a metadata query service.
type Client struct {
	baseURL   *url.URL
	userAgent string
	client    HTTPDoer
	logger    *slog.Logger
}

// NewClient builds a client from the [mdq] config section.
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mdq client: config is nil")
	}
	httpClient := &http.Client{Timeout: time.Duration(cfg.MDQ.RequestTimeout) * time.Second}
	return NewClientWithDoer(cfg.MDQ.ServiceURL, cfg.MDQ.UserAgent, httpClient, logger)
}

// NewClientWithDoer constructs a client around an arbitrary HTTPDoer.
func NewClientWithDoer(baseURL, userAgent string, doer HTTPDoer, logger *slog.Logger) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("mdq client: parse service url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("mdq client: service url %q must be absolute", baseURL)
	}
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Client{
		baseURL:   parsed,
		userAgent: userAgent,
		client:    doer,
		logger:    logging.NewComponentLogger(logger, "mdq"),
	}, nil
}

// SignedFileName is the signed store file name for an identifier digest.
func SignedFileName(digest string) string {
	return SignedPrefix + digest
}

// EntityURL returns the lookup URL for an identifier digest. The braces stay
// percent-encoded on the wire.
func (c *Client) EntityURL(digest string) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/entities/{sha1}" + digest
	u.RawPath = strings.TrimRight(c.baseURL.EscapedPath(), "/") + "/entities/" + SignedPrefix + digest
	return u.String()
}

// Fetch downloads the signed document for digest, validates it, and stores
// it as destDir/SignedFileName(digest). Every rejected response or transport
// failure is returned as a *FatalFetchError and leaves destDir untouched.
func (c *Client) Fetch(ctx context.Context, destDir, digest string) error {
	target := c.EntityURL(digest)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build mdq request: %w", err)
	}
	req.Header.Set("Accept", "application/xml")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &FatalFetchError{URL: target, Reason: ReasonTransport, Err: err}
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	switch {
	case resp.StatusCode != http.StatusOK:
		return &FatalFetchError{URL: target, Reason: ReasonStatus, StatusCode: resp.StatusCode, ContentType: contentType}
	case strings.TrimSpace(contentType) == "":
		return &FatalFetchError{URL: target, Reason: ReasonNoContentType, StatusCode: resp.StatusCode}
	case !strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "application/xml"):
		return &FatalFetchError{URL: target, Reason: ReasonContentType, StatusCode: resp.StatusCode, ContentType: contentType}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return &FatalFetchError{URL: target, Reason: ReasonReadBody, StatusCode: resp.StatusCode, ContentType: contentType, Err: err}
	}
	if len(body) > maxBodyBytes {
		return &FatalFetchError{URL: target, Reason: ReasonBodyTooLarge, StatusCode: resp.StatusCode, ContentType: contentType}
	}

	parsed := entity.Parse(bytes.NewReader(body))
	if !parsed.OK() {
		reason := ReasonInvalidXML
		if parsed.Failure.Reason == entity.ReasonMissingIdentifier {
			reason = ReasonMissingEntityID
		}
		return &FatalFetchError{URL: target, Reason: reason, StatusCode: resp.StatusCode, ContentType: contentType, Err: parsed.Failure}
	}

	dest := filepath.Join(destDir, SignedFileName(digest))
	if err := fileutil.WriteFileAtomic(dest, bytes.NewReader(body), 0o644); err != nil {
		return fmt.Errorf("store signed metadata %s: %w", dest, err)
	}

	c.logger.Debug("signed metadata stored",
		logging.String(logging.FieldEntityID, parsed.Record.EntityID),
		logging.String("url", target),
		logging.Int("bytes", len(body)),
	)
	return nil
}

// RemoveSigned deletes the stored signed document for digest, if any.
func RemoveSigned(destDir, digest string) (bool, error) {
	removed, err := fileutil.RemoveIfExists(filepath.Join(destDir, SignedFileName(digest)))
	if err != nil {
		return false, fmt.Errorf("remove signed metadata: %w", err)
	}
	return removed, nil
}
