package trust

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/rs/zerolog/log"

	"github.com/mkuran/gatewarden/internal/core"
)

// maxKeySetBytes caps how much of a JWKS response is read. Real key sets
// are a few kilobytes.
const maxKeySetBytes = 1 << 20

// Fetcher retrieves and parses the trust anchor's JWKS document.
type Fetcher struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

// NewFetcher builds a Fetcher for the given JWKS URL. A nil client falls
// back to http.DefaultClient.
func NewFetcher(url string, timeout time.Duration, client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{url: url, timeout: timeout, client: client}
}

// URL returns the JWKS URL this fetcher reads from.
func (f *Fetcher) URL() string {
	return f.url
}

// Fetch retrieves the current key set. Transport errors, timeouts,
// non-2xx responses and documents that are not well-formed JSON report
// KindKeySetUnavailable. Individual entries that fail to parse are
// skipped rather than failing the document; a document yielding zero
// usable keys reports KindKeySetEmpty.
func (f *Fetcher) Fetch(ctx context.Context) (jwk.Set, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, core.Failf(core.KindKeySetUnavailable, "building key set request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, core.Failf(core.KindKeySetUnavailable, "fetching key set: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, core.Failf(core.KindKeySetUnavailable, "key set endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxKeySetBytes))
	if err != nil {
		return nil, core.Failf(core.KindKeySetUnavailable, "reading key set response: %w", err)
	}

	set, err := jwk.Parse(body, jwk.WithIgnoreParseError(true))
	if err != nil {
		return nil, core.Failf(core.KindKeySetUnavailable, "parsing key set document: %w", err)
	}
	if set.Len() == 0 {
		return nil, core.NewFailure(core.KindKeySetEmpty,
			fmt.Errorf("key set at %s contains no usable keys", f.url))
	}

	log.Ctx(ctx).Debug().
		Str("url", f.url).
		Int("keys", set.Len()).
		Msg("keyset.fetched")

	return set, nil
}
