// Package client implements the HTTP remote cache client: upload and
// download of task output archives against a remote cache endpoint, with
// bounded retries and exponential backoff so a flaky network degrades to
// a cache miss instead of failing the run.
package client

import (
	"bytes"
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-retryablehttp"
)

// ErrTooManyFailures is returned once maxFailCount consecutive requests
// have failed, so a degraded remote cache stops adding request latency
// to every subsequent task.
var ErrTooManyFailures = errors.New("remote cache: too many failures, skipping further requests")

const maxFailCount = uint64(3)

// Config holds the endpoint and auth details for the remote cache.
type Config struct {
	APIURL  string
	Token   string
	TeamID  string
	Timeout time.Duration
}

// RemoteCacheClient talks to the remote cache's HTTP API.
type RemoteCacheClient struct {
	baseURL    string
	token      string
	teamID     string
	httpClient *retryablehttp.Client

	failCount uint64
}

// New constructs a RemoteCacheClient. logger receives retryablehttp's
// retry/backoff diagnostics.
func New(config Config, logger hclog.Logger) *RemoteCacheClient {
	c := &RemoteCacheClient{
		baseURL: config.APIURL,
		token:   config.Token,
		teamID:  config.TeamID,
		httpClient: &retryablehttp.Client{
			HTTPClient:   &http.Client{Timeout: config.Timeout},
			RetryWaitMin: 2 * time.Second,
			RetryWaitMax: 10 * time.Second,
			RetryMax:     2,
			Backoff:      retryablehttp.DefaultBackoff,
			Logger:       logger,
		},
	}
	c.httpClient.CheckRetry = c.checkRetry
	return c
}

func (c *RemoteCacheClient) checkRetry(_ context.Context, resp *http.Response, err error) (bool, error) {
	if err != nil {
		var unknownAuth x509.UnknownAuthorityError
		if errors.As(err, &unknownAuth) {
			atomic.AddUint64(&c.failCount, 1)
			return false, err
		}
		atomic.AddUint64(&c.failCount, 1)
		return true, nil
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return true, nil
	}
	atomic.StoreUint64(&c.failCount, 0)
	return false, nil
}

func (c *RemoteCacheClient) okToRequest() error {
	if atomic.LoadUint64(&c.failCount) >= maxFailCount {
		return ErrTooManyFailures
	}
	return nil
}

func (c *RemoteCacheClient) url(path string) string {
	return fmt.Sprintf("%s%s", c.baseURL, path)
}

func (c *RemoteCacheClient) authorize(req *retryablehttp.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	if c.teamID != "" {
		q := req.URL.Query()
		q.Set("teamId", c.teamID)
		req.URL.RawQuery = q.Encode()
	}
}

// PutArtifact uploads the archive bytes for hash to the remote cache.
func (c *RemoteCacheClient) PutArtifact(hash string, body []byte, durationMS int) error {
	if err := c.okToRequest(); err != nil {
		return err
	}
	req, err := retryablehttp.NewRequest(http.MethodPut, c.url("/v8/artifacts/"+hash), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("x-artifact-duration", fmt.Sprintf("%d", durationMS))
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote cache put failed with status %v", resp.StatusCode)
	}
	return nil
}

// FetchArtifact downloads the archive bytes for hash. A nil body with a
// nil error means the remote cache does not have this hash.
func (c *RemoteCacheClient) FetchArtifact(hash string) ([]byte, bool, error) {
	if err := c.okToRequest(); err != nil {
		return nil, false, err
	}
	req, err := retryablehttp.NewRequest(http.MethodGet, c.url("/v8/artifacts/"+hash), nil)
	if err != nil {
		return nil, false, err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("remote cache fetch failed with status %v", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}

// ArtifactExists checks for hash's presence without downloading it.
func (c *RemoteCacheClient) ArtifactExists(hash string) (bool, error) {
	if err := c.okToRequest(); err != nil {
		return false, err
	}
	req, err := retryablehttp.NewRequest(http.MethodHead, c.url("/v8/artifacts/"+hash), nil)
	if err != nil {
		return false, err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}
