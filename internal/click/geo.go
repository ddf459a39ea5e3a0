package click

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Location is the result of a geolocation lookup.
type Location struct {
	Country string
	City    string
}

// Locator resolves a client address to a coarse location. Lookups are
// best-effort: callers swallow errors and leave the fields absent.
type Locator interface {
	Locate(ctx context.Context, clientAddress string) (Location, error)
}

// httpLocator queries an ip-api-style JSON endpoint
// (GET <base>/<ip> → {"status":"success","country":...,"city":...}).
type httpLocator struct {
	baseURL string
	client  *http.Client
}

// NewHTTPLocator creates a Locator against the given base URL. The
// timeout bounds the whole lookup, connection included.
func NewHTTPLocator(baseURL string, timeout time.Duration) Locator {
	return &httpLocator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (l *httpLocator) Locate(ctx context.Context, clientAddress string) (Location, error) {
	endpoint := fmt.Sprintf("%s/%s", l.baseURL, url.PathEscape(clientAddress))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Location{}, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return Location{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geolocation lookup returned status %d", resp.StatusCode)
	}

	var body struct {
		Status  string `json:"status"`
		Country string `json:"country"`
		City    string `json:"city"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, err
	}
	if body.Status != "success" {
		return Location{}, fmt.Errorf("geolocation lookup failed for %s", clientAddress)
	}

	return Location{Country: body.Country, City: body.City}, nil
}
