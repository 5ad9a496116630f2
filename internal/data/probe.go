package data

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"HealthPulse/internal/conf"
	"HealthPulse/internal/model"
	"HealthPulse/pkg/httpclient"
)

// ErrAPIURLNotConfigured is reported by the API probe when monitor.api_url is empty.
var ErrAPIURLNotConfigured = errors.New("API_URL not configured")

// APIProbe checks GET {api_url}/health and is healthy only on 200.
type APIProbe struct {
	url    string
	client *http.Client
}

// NewAPIProbe creates the api-gateway probe.
func NewAPIProbe(c *conf.Monitor) (*APIProbe, error) {
	timeout := 10 * time.Second
	var apiURL, proxyURL string
	if c != nil {
		apiURL, proxyURL = c.ApiUrl, c.ProxyUrl
		if d := c.ProbeTimeout.AsDuration(); d > 0 {
			timeout = d
		}
	}

	client, err := httpclient.New(proxyURL, timeout)
	if err != nil {
		return nil, fmt.Errorf("api probe client: %w", err)
	}

	p := &APIProbe{client: client}
	if apiURL != "" {
		p.url = apiURL + "/health"
	}
	return p, nil
}

// Name implements biz.Probe.
func (p *APIProbe) Name() string { return model.ProbeAPIGateway }

// Check implements biz.Probe.
func (p *APIProbe) Check(ctx context.Context) (int, error) {
	if p.url == "" {
		return 0, ErrAPIURLNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "HealthPulse-Monitor/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// DatastoreProbe pings the sample store.
type DatastoreProbe struct {
	data *Data
}

// NewDatastoreProbe creates the datastore probe.
func NewDatastoreProbe(d *Data) *DatastoreProbe {
	return &DatastoreProbe{data: d}
}

// Name implements biz.Probe.
func (p *DatastoreProbe) Name() string { return model.ProbeDatastore }

// Check implements biz.Probe.
func (p *DatastoreProbe) Check(ctx context.Context) (int, error) {
	return 0, p.data.PingDatabase(ctx)
}

// QueueProbe pings the Redis instance behind the fallback queue.
type QueueProbe struct {
	data *Data
}

// NewQueueProbe creates the queue probe.
func NewQueueProbe(d *Data) *QueueProbe {
	return &QueueProbe{data: d}
}

// Name implements biz.Probe.
func (p *QueueProbe) Name() string { return model.ProbeQueue }

// Check implements biz.Probe.
func (p *QueueProbe) Check(ctx context.Context) (int, error) {
	return 0, p.data.PingRedis(ctx)
}
