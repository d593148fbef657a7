package ics

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"

	appLog "timerdash/internal/log"
)

const (
	// maxFeedBytes caps the size of a remote calendar.
	maxFeedBytes = 4 << 20
	// maxCachedSources caps how many source bodies are kept.
	maxCachedSources = 32
)

// Source is a configured remote calendar.
type Source struct {
	// ID is the configured identifier; the cache is keyed on it.
	ID  string
	URL string
}

// Fetcher downloads configured calendars for import. It remembers ETag and
// Last-Modified per source and reuses the cached body on 304 or when the
// remote is unreachable.
type Fetcher struct {
	client *http.Client

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	url          string
	etag         string
	lastModified string
	body         []byte
}

// NewFetcher returns a Fetcher. A nil client gets a 15s timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client, cache: make(map[string]cacheEntry)}
}

// Fetch returns the body of the calendar behind src. Only http and https
// URLs are accepted.
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]byte, error) {
	rawURL := src.URL
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Errorf("invalid calendar URL %q for source %q", redactURL(rawURL), src.ID)
	}

	f.mu.Lock()
	cached, hasCache := f.cache[src.ID]
	f.mu.Unlock()
	// A source whose URL changed starts over.
	hasCache = hasCache && cached.url == rawURL

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "text/calendar")
	if hasCache {
		if cached.etag != "" {
			req.Header.Set("If-None-Match", cached.etag)
		}
		if cached.lastModified != "" {
			req.Header.Set("If-Modified-Since", cached.lastModified)
		}
	}

	appLog.Info("ics fetch start", "source", src.ID, "url", redactURL(rawURL))
	resp, err := f.client.Do(req)
	if err != nil {
		if hasCache {
			appLog.Error("ics fetch failed, using cached body", err, "url", redactURL(rawURL))
			return cached.body, nil
		}
		return nil, errors.Wrap(err, "fetch calendar")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes+1))
		if err != nil {
			return nil, errors.Wrap(err, "read calendar")
		}
		if len(body) > maxFeedBytes {
			return nil, errors.Errorf("calendar exceeds %d bytes", maxFeedBytes)
		}
		f.store(src.ID, cacheEntry{
			url:          rawURL,
			etag:         resp.Header.Get("ETag"),
			lastModified: resp.Header.Get("Last-Modified"),
			body:         body,
		})
		appLog.Info("ics fetch success", "url", redactURL(rawURL), "bytes", len(body))
		return body, nil

	case http.StatusNotModified:
		if !hasCache {
			return nil, errors.New("received 304 Not Modified without a cached body")
		}
		appLog.Info("ics fetch not modified; using cache", "url", redactURL(rawURL))
		return cached.body, nil

	default:
		if hasCache {
			appLog.Error("ics fetch non-OK, using cached body", errors.New(resp.Status), "url", redactURL(rawURL))
			return cached.body, nil
		}
		return nil, errors.Errorf("fetch calendar: %s", resp.Status)
	}
}

// store caches entry for id, evicting another source when the cache is full.
func (f *Fetcher) store(id string, entry cacheEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.cache[id]; !ok && len(f.cache) >= maxCachedSources {
		for victim := range f.cache {
			delete(f.cache, victim)
			break
		}
	}
	f.cache[id] = entry
}

// redactURL keeps only scheme and host; calendar URLs often embed tokens.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
