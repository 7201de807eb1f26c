package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"prebuild/internal/config"
	"prebuild/internal/logging"
	"prebuild/internal/services"
)

const (
	defaultAttempts = 10
	defaultWait     = 10 * time.Second
)

// Downloader fetches URLs to local files with a fixed retry policy.
type Downloader struct {
	client    *http.Client
	attempts  int
	wait      time.Duration
	userAgent string
	logger    *slog.Logger
	// progress receives a live progress bar. Nil means sampled log lines.
	progress io.Writer
	sleeper  func(time.Duration)
}

// Option customizes the downloader.
type Option func(*Downloader)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Downloader) {
		if client != nil {
			d.client = client
		}
	}
}

// WithRetry overrides the attempt count and the wait between attempts.
func WithRetry(attempts int, wait time.Duration) Option {
	return func(d *Downloader) {
		d.attempts = attempts
		d.wait = wait
	}
}

// WithSleeper overrides how retry waits are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(d *Downloader) {
		d.sleeper = sleeper
	}
}

// WithProgressWriter renders a progress bar to w. Pass nil to force log sampling.
func WithProgressWriter(w io.Writer) Option {
	return func(d *Downloader) {
		d.progress = w
	}
}

// NewDownloader builds a downloader from the download section of cfg.
func NewDownloader(cfg *config.Config, logger *slog.Logger, opts ...Option) *Downloader {
	d := &Downloader{
		client:    &http.Client{},
		attempts:  defaultAttempts,
		wait:      defaultWait,
		userAgent: "prebuild",
		logger:    logging.NewComponentLogger(logger, "download"),
	}
	if cfg != nil {
		d.attempts = cfg.Download.Attempts
		d.wait = cfg.RetryWait()
		d.userAgent = cfg.Download.UserAgent
		d.client.Timeout = cfg.DownloadTimeout()
	}
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		d.progress = os.Stderr
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.attempts <= 0 {
		d.attempts = 1
	}
	return d
}

type httpStatusError struct {
	URL        string
	StatusCode int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("GET %s: http %d", e.URL, e.StatusCode)
}

// Download writes url to dest. The body lands in a temporary sibling file that
// is renamed over dest only once complete. insecure disables certificate
// verification for hosts whose mirrors present broken chains.
func (d *Downloader) Download(ctx context.Context, url, dest string, insecure bool) error {
	logger := logging.WithContext(ctx, d.logger)
	var lastErr error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		err := d.downloadOnce(ctx, url, dest, insecure)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt >= d.attempts || !retryable(ctx, err) {
			break
		}
		logging.WarnWithContext(logger, "download attempt failed; retrying", "download_retry",
			logging.String("url", url),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", d.attempts),
			logging.Duration("wait", d.wait),
			logging.Error(err),
			logging.String(logging.FieldImpact, "download will be retried"),
		)
		if err := d.sleep(ctx, d.wait); err != nil {
			lastErr = err
			break
		}
	}
	return services.Wrap(services.ErrNetwork, "", "download", url, lastErr)
}

func (d *Downloader) downloadOnce(ctx context.Context, url, dest string, insecure bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	resp, err := d.clientFor(insecure).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &httpStatusError{URL: url, StatusCode: resp.StatusCode}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".part-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, d.track(ctx, resp, filepath.Base(dest))); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, dest)
}

func (d *Downloader) clientFor(insecure bool) *http.Client {
	if !insecure {
		return d.client
	}
	base, ok := d.client.Transport.(*http.Transport)
	if d.client.Transport == nil {
		base, ok = http.DefaultTransport.(*http.Transport)
	}
	if !ok {
		return d.client
	}
	transport := base.Clone()
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{}
	}
	transport.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec
	clone := *d.client
	clone.Transport = transport
	return &clone
}

// track wraps the body with a progress bar on a terminal, or with sampled
// progress logs otherwise.
func (d *Downloader) track(ctx context.Context, resp *http.Response, name string) io.Reader {
	if d.progress != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(d.progress),
			progressbar.OptionSetDescription(name),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
		)
		return io.TeeReader(resp.Body, bar)
	}
	return &loggingReader{
		r:       resp.Body,
		total:   resp.ContentLength,
		sampler: logging.NewProgressSampler(25),
		logger:  logging.WithContext(ctx, d.logger).With(logging.Args(logging.String("file", name))...),
	}
}

func (d *Downloader) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if d.sleeper != nil {
		d.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type loggingReader struct {
	r       io.Reader
	read    int64
	total   int64
	sampler *logging.ProgressSampler
	logger  *slog.Logger
}

func (l *loggingReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.total > 0 {
		percent := float64(l.read) * 100 / float64(l.total)
		if l.sampler.ShouldLog(percent) {
			l.logger.Info("download progress",
				logging.Int("percent", int(percent)),
				logging.Int64("bytes", l.read),
				logging.Int64("total", l.total),
			)
		}
	}
	return n, err
}

// retryable reports whether a failed attempt is worth repeating: refused or
// reset connections, timeouts, truncated bodies, and 408/429/5xx responses.
// Certificate failures and other 4xx responses are final.
func retryable(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusRequestTimeout ||
			statusErr.StatusCode == http.StatusTooManyRequests ||
			statusErr.StatusCode >= http.StatusInternalServerError
	}
	var certErr *tls.CertificateVerificationError
	var authorityErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &authorityErr) || errors.As(err, &hostErr) {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}
