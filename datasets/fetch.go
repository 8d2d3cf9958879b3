package datasets

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/scigo/workflows/pkg/errors"
	"github.com/scigo/workflows/pkg/log"
)

// DefaultBaseURL serves the raw files scikit-learn ships for its bundled
// datasets.
const DefaultBaseURL = "https://raw.githubusercontent.com/scikit-learn/scikit-learn/main/sklearn/datasets/data"

// Source returns the raw bytes of a named dataset file.
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	BaseURL    string
	DataHome   string
	Timeout    time.Duration
	RetryCount int
	// Offline disables downloads; only cached files are served.
	Offline bool
}

// Fetcher is a Source that serves files from the on-disk cache and
// downloads missing ones over HTTP.
type Fetcher struct {
	cfg    FetcherConfig
	client *resty.Client
	cache  *Cache
	logger log.Logger
}

// NewFetcher opens the cache in cfg.DataHome and prepares the HTTP client.
// An offline Fetcher only reads an existing cache and never creates one.
// The caller must Close the Fetcher.
func NewFetcher(cfg FetcherConfig, logger log.Logger) (*Fetcher, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = log.Nop()
	}

	open := OpenCache
	if cfg.Offline {
		open = OpenCacheReadOnly
	}
	cache, err := open(cfg.DataHome)
	if err != nil {
		return nil, err
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Fetcher{
		cfg:    cfg,
		client: client,
		cache:  cache,
		logger: logger.With(log.ComponentKey, "datasets"),
	}, nil
}

// Close closes the cache.
func (f *Fetcher) Close() error {
	return f.cache.Close()
}

// Fetch returns the named file from the cache, downloading and caching it
// on a miss.
func (f *Fetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	data, ok, err := f.cache.Get(name)
	if err != nil {
		return nil, err
	}
	if ok {
		f.logger.Debug("dataset file served from cache", log.DatasetKey, name, log.CacheHitKey, true)
		return data, nil
	}
	if f.cfg.Offline {
		return nil, errors.Wrapf(errors.ErrDatasetUnavailable, "%s is not cached and downloads are disabled", name)
	}

	url := strings.TrimRight(f.cfg.BaseURL, "/") + "/" + name
	start := time.Now()
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrDatasetUnavailable, "download %s: %v", url, err)
	}
	if resp.IsError() {
		return nil, errors.Wrapf(errors.ErrDatasetUnavailable, "download %s: HTTP %d", url, resp.StatusCode())
	}

	data = resp.Body()
	if err := f.cache.Put(name, url, data); err != nil {
		return nil, err
	}
	f.logger.Info("dataset file downloaded",
		log.DatasetKey, name,
		log.CacheHitKey, false,
		"bytes", len(data),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return data, nil
}
