// Package whois fetches domain registration records from a
// WhoisXMLAPI-compatible WhoIs service.
//
// Goal: one GET per candidate, one parsed record back. The scoring
// pipeline runs sequentially, so lookups are sequential too; an in-run
// cache keeps duplicate domains within a batch from hitting the API twice.
// This is deliberately not a general WhoIs client: it reads exactly the
// fields the output rows need.
package whois

/*
freqscan — batch frequency scoring for domain names with the freq tool
Copyright (C) 2026  Pepijn van der Stap <freqscan@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/x-stp/freqscan/internal/client"
	"github.com/x-stp/freqscan/internal/metrics"
)

// DefaultAPIURL is the WhoisXMLAPI endpoint used when no override is given.
const DefaultAPIURL = "https://www.whoisxmlapi.com/whoisserver/WhoisService"

// Registrant holds the subset of registrant contact data carried into
// output rows.
type Registrant struct {
	Organization string `json:"organization"`
	State        string `json:"state"`
	Country      string `json:"country"`
}

// Record is the part of a WhoIs record the pipeline consumes.
// Dates stay strings here; ParseTimestamp interprets them because the
// API mixes RFC 3339, "2006-01-02 15:04:05 UTC" and bare-date forms.
type Record struct {
	CreatedDate string     `json:"createdDate"`
	UpdatedDate string     `json:"updatedDate"`
	Registrant  Registrant `json:"registrant"`
}

// lookupResponse mirrors the service's JSON envelope.
// Used for unmarshalling JSON (allocates).
type lookupResponse struct {
	WhoisRecord  *Record `json:"WhoisRecord"`
	ErrorMessage *struct {
		Code string `json:"errorCode"`
		Msg  string `json:"msg"`
	} `json:"ErrorMessage"`
}

// Client performs WhoIs lookups against a single endpoint.
// Not safe for concurrent use; the scoring loop is single-threaded.
type Client struct {
	apiURL    string
	apiKey    string
	http      *http.Client
	limiter   *rate.Limiter
	cache     map[string]*Record
	cacheHits int64
}

// New builds a Client. An empty apiURL falls back to DefaultAPIURL.
// rps > 0 paces requests with a token bucket; rps <= 0 disables pacing.
func New(apiURL, apiKey string, rps float64) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	c := &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		http:   client.GetHTTPClient(),
		cache:  make(map[string]*Record),
	}
	if rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return c
}

// Lookup fetches the WhoIs record for domain, answering from the in-run
// cache when the same domain was already looked up this batch.
// Operation: network bound. One GET, no retries; a failed lookup is the
// caller's signal to skip the candidate.
func (c *Client) Lookup(ctx context.Context, domain string) (*Record, error) {
	if rec, ok := c.cache[domain]; ok {
		c.cacheHits++
		metrics.Get().WhoisCacheHit()
		return rec, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	rec, err := c.fetch(ctx, domain)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.Get().ObserveWhois(status, time.Since(start))

	if err != nil {
		return nil, err
	}
	c.cache[domain] = rec
	return rec, nil
}

// CacheHits reports how many lookups were answered from the in-run cache.
func (c *Client) CacheHits() int64 {
	return c.cacheHits
}

func (c *Client) fetch(ctx context.Context, domain string) (*Record, error) {
	reqURL := fmt.Sprintf("%s?apiKey=%s&domainName=%s&outputFormat=JSON",
		c.apiURL, url.QueryEscape(c.apiKey), url.QueryEscape(domain))

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating WhoIs request: %w", err)
	}
	req.Header.Set("User-Agent", "freqscan (+https://github.com/x-stp/freqscan)")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error retrieving WhoIs record for %s: %w", domain, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error %d fetching WhoIs record for %s", resp.StatusCode, domain)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading WhoIs response body: %w", err)
	}

	var lr lookupResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, fmt.Errorf("error parsing WhoIs response JSON for %s: %w", domain, err)
	}
	if lr.ErrorMessage != nil {
		return nil, fmt.Errorf("WhoIs API error for %s: %s (code %s)", domain, lr.ErrorMessage.Msg, lr.ErrorMessage.Code)
	}
	if lr.WhoisRecord == nil {
		return nil, fmt.Errorf("WhoIs response for %s carried no record", domain)
	}
	return lr.WhoisRecord, nil
}

// timestampLayouts are tried in order by ParseTimestamp.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
}

// NormalizeTimestamp trims a raw WhoIs date and rewrites a trailing
// " UTC" into the Z zone designator so the value parses as RFC 3339.
func NormalizeTimestamp(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, " UTC") {
		s = strings.TrimSuffix(s, " UTC") + "Z"
	}
	return s
}

// ParseTimestamp interprets a WhoIs date string. The second return is
// false when the value is empty or matches none of the known layouts;
// callers treat that as "no date" rather than an error.
func ParseTimestamp(s string) (time.Time, bool) {
	s = NormalizeTimestamp(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
