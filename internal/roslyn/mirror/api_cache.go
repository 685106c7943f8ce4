package mirror

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/greeddj/go-roslyn/internal/roslyn/store"
)

// HTTPStatusError describes a non-200 response from the release index.
type HTTPStatusError struct {
	URL    string
	Status string
	Code   int
}

// Error implements the error interface.
func (e *HTTPStatusError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("failed to fetch release index: %s (%s)", e.Status, e.URL)
	}
	return "failed to fetch release index: " + e.Status
}

// apiCacheKey generates a stable cache key for a URL.
func apiCacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// indexResponse carries a release index body plus the validators needed to
// revalidate it later.
type indexResponse struct {
	body         []byte
	etag         string
	lastModified string
	notModified  bool
}

// FetchJSONWithCachePolicy fetches url as JSON into out, consulting and
// updating the snapshot store's response cache according to policy. Entries
// inside their TTL are served without touching the network; expired entries
// are revalidated with If-None-Match / If-Modified-Since so an unchanged
// index costs a 304 instead of a full body.
func FetchJSONWithCachePolicy(ctx context.Context, client *http.Client, url string, st *store.Store, out any, policy Policy) error {
	if st == nil || (!policy.Read && !policy.Write) {
		resp, err := requestIndex(ctx, client, url, nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(resp.body, out)
	}

	key := apiCacheKey(url)
	if policy.Read {
		if entry, ok := st.GetAPICache(key); ok && entry.URL == url && len(entry.Body) > 0 {
			return serveCached(ctx, client, url, st, key, entry, out, policy)
		}
	}

	resp, err := requestIndex(ctx, client, url, nil)
	if err != nil {
		return err
	}
	if policy.Write {
		st.SetAPICache(key, cacheEntryFor(url, resp, policy.TTL))
	}
	return json.Unmarshal(resp.body, out)
}

// serveCached answers from a cache hit: directly while the entry is fresh,
// after a conditional request once it has expired.
func serveCached(
	ctx context.Context,
	client *http.Client,
	url string,
	st *store.Store,
	key string,
	entry store.APICacheEntry,
	out any,
	policy Policy,
) error {
	fresh := policy.TTL == 0 || time.Since(entry.FetchedAt) <= policy.TTL
	if fresh {
		if err := json.Unmarshal(entry.Body, out); err == nil {
			return nil
		}
		// corrupt cached body, fall through to revalidation
	}

	resp, err := requestIndex(ctx, client, url, &entry)
	if err != nil {
		return err
	}
	if resp.notModified {
		entry.FetchedAt = time.Now().UTC()
		if resp.etag != "" {
			entry.ETag = resp.etag
		}
		if resp.lastModified != "" {
			entry.LastModified = resp.lastModified
		}
		if policy.Write {
			st.SetAPICache(key, entry)
		}
		return json.Unmarshal(entry.Body, out)
	}
	if policy.Write {
		st.SetAPICache(key, cacheEntryFor(url, resp, policy.TTL))
	}
	return json.Unmarshal(resp.body, out)
}

func cacheEntryFor(url string, resp indexResponse, ttl time.Duration) store.APICacheEntry {
	return store.APICacheEntry{
		URL:          url,
		FetchedAt:    time.Now().UTC(),
		TTL:          ttl,
		Body:         resp.body,
		ETag:         resp.etag,
		LastModified: resp.lastModified,
	}
}

// requestIndex performs the HTTP exchange. A non-nil entry turns it into a
// conditional request carrying the entry's validators.
func requestIndex(ctx context.Context, client *http.Client, url string, entry *store.APICacheEntry) (indexResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return indexResponse{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if entry != nil {
		if entry.ETag != "" {
			req.Header.Set("If-None-Match", entry.ETag)
		}
		if entry.LastModified != "" {
			req.Header.Set("If-Modified-Since", entry.LastModified)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return indexResponse{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	result := indexResponse{
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
	}
	switch {
	case resp.StatusCode == http.StatusNotModified:
		result.notModified = true
		return result, nil
	case resp.StatusCode != http.StatusOK:
		return indexResponse{}, &HTTPStatusError{URL: url, Status: resp.Status, Code: resp.StatusCode}
	}
	result.body, err = io.ReadAll(resp.Body)
	return result, err
}
