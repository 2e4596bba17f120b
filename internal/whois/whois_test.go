package whois

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestNormalizeTimestamp(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"utc suffix becomes zone designator", "1997-09-15 04:00:00 UTC", "1997-09-15 04:00:00Z"},
		{"rfc3339 passes through", "2019-03-12T09:20:33Z", "2019-03-12T09:20:33Z"},
		{"surrounding whitespace trimmed", "  2021-06-07  ", "2021-06-07"},
		{"empty stays empty", "", ""},
		{"bare UTC is not a suffix match", "UTC", "UTC"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeTimestamp(tc.input); got != tc.want {
				t.Errorf("NormalizeTimestamp(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name   string
		input  string
		wantOK bool
		want   time.Time
	}{
		{
			name:   "rfc3339",
			input:  "2019-03-12T09:20:33Z",
			wantOK: true,
			want:   time.Date(2019, 3, 12, 9, 20, 33, 0, time.UTC),
		},
		{
			name:   "rfc3339 with offset",
			input:  "2019-03-12T09:20:33+02:00",
			wantOK: true,
			want:   time.Date(2019, 3, 12, 7, 20, 33, 0, time.UTC),
		},
		{
			name:   "space separated with utc suffix",
			input:  "1997-09-15 04:00:00 UTC",
			wantOK: true,
			want:   time.Date(1997, 9, 15, 4, 0, 0, 0, time.UTC),
		},
		{
			name:   "bare date",
			input:  "2021-06-07",
			wantOK: true,
			want:   time.Date(2021, 6, 7, 0, 0, 0, 0, time.UTC),
		},
		{name: "empty", input: "", wantOK: false},
		{name: "whitespace only", input: "   ", wantOK: false},
		{name: "garbage", input: "soon", wantOK: false},
		{name: "unknown layout", input: "15/09/1997", wantOK: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseTimestamp(tc.input)
			if ok != tc.wantOK {
				t.Fatalf("ParseTimestamp(%q) ok = %v, want %v", tc.input, ok, tc.wantOK)
			}
			if ok && !got.Equal(tc.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()
	c := New("", "key", 0)
	if c.apiURL != DefaultAPIURL {
		t.Errorf("apiURL = %q, want %q", c.apiURL, DefaultAPIURL)
	}
	if c.limiter != nil {
		t.Error("limiter should be nil when rps <= 0")
	}
	if paced := New("http://example.test", "key", 2.5); paced.limiter == nil {
		t.Error("limiter should be set when rps > 0")
	}
}

func TestLookupParsesRecord(t *testing.T) {
	t.Parallel()
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, `{"WhoisRecord":{
			"createdDate":"2026-03-01T10:00:00Z",
			"updatedDate":"2026-03-02 11:30:00 UTC",
			"registrant":{"organization":"Example Org","state":"ZH","country":"NL"}}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "s3cret", 0)
	rec, err := c.Lookup(context.Background(), "examp1e.com")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}

	if gotQuery.Get("apiKey") != "s3cret" {
		t.Errorf("apiKey = %q, want %q", gotQuery.Get("apiKey"), "s3cret")
	}
	if gotQuery.Get("domainName") != "examp1e.com" {
		t.Errorf("domainName = %q, want %q", gotQuery.Get("domainName"), "examp1e.com")
	}
	if gotQuery.Get("outputFormat") != "JSON" {
		t.Errorf("outputFormat = %q, want JSON", gotQuery.Get("outputFormat"))
	}

	if rec.CreatedDate != "2026-03-01T10:00:00Z" {
		t.Errorf("CreatedDate = %q", rec.CreatedDate)
	}
	if rec.UpdatedDate != "2026-03-02 11:30:00 UTC" {
		t.Errorf("UpdatedDate = %q", rec.UpdatedDate)
	}
	if rec.Registrant.Organization != "Example Org" || rec.Registrant.State != "ZH" || rec.Registrant.Country != "NL" {
		t.Errorf("Registrant = %+v", rec.Registrant)
	}
}

func TestLookupCachesWithinRun(t *testing.T) {
	t.Parallel()
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, `{"WhoisRecord":{"createdDate":"2026-01-01"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "key", 0)
	first, err := c.Lookup(context.Background(), "examp1e.com")
	if err != nil {
		t.Fatalf("first Lookup() error = %v", err)
	}
	second, err := c.Lookup(context.Background(), "examp1e.com")
	if err != nil {
		t.Fatalf("second Lookup() error = %v", err)
	}

	if requests != 1 {
		t.Errorf("server saw %d requests, want 1", requests)
	}
	if first != second {
		t.Error("cached lookup should return the same record")
	}
	if c.CacheHits() != 1 {
		t.Errorf("CacheHits() = %d, want 1", c.CacheHits())
	}
}

func TestLookupErrors(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		handler http.HandlerFunc
		wantSub string
	}{
		{
			name: "http error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			wantSub: "HTTP error 503",
		},
		{
			name: "api error envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"ErrorMessage":{"errorCode":"API_KEY_04","msg":"invalid api key"}}`)
			},
			wantSub: "invalid api key",
		},
		{
			name: "record missing",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{}`)
			},
			wantSub: "carried no record",
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"WhoisRecord":`)
			},
			wantSub: "error parsing WhoIs response",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			c := New(srv.URL, "key", 0)
			_, err := c.Lookup(context.Background(), "examp1e.com")
			if err == nil {
				t.Fatal("Lookup() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("Lookup() error = %v, want it to contain %q", err, tc.wantSub)
			}
			if c.CacheHits() != 0 {
				t.Errorf("CacheHits() = %d after failed lookup, want 0", c.CacheHits())
			}
		})
	}
}
