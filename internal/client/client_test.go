package client

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
)

func testClient(baseURL string) *RemoteCacheClient {
	return New(Config{APIURL: baseURL, Token: "my-token", Timeout: time.Second}, hclog.NewNullLogger())
}

func TestPutArtifactSendsBodyAndAuth(t *testing.T) {
	ch := make(chan []byte, 1)
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer req.Body.Close()
		gotAuth = req.Header.Get("Authorization")
		b, _ := io.ReadAll(req.Body)
		ch <- b
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	c := testClient(ts.URL)
	body := []byte("artifact bytes")
	if err := c.PutArtifact("hash1", body, 500); err != nil {
		t.Fatalf("PutArtifact: %v", err)
	}

	got := <-ch
	if !bytes.Equal(got, body) {
		t.Errorf("server received %v, want %v", got, body)
	}
	if gotAuth != "Bearer my-token" {
		t.Errorf("Authorization header got %q, want %q", gotAuth, "Bearer my-token")
	}
}

func TestFetchArtifactMissIsNotAnError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := testClient(ts.URL)
	body, ok, err := c.FetchArtifact("missing")
	if err != nil {
		t.Fatalf("FetchArtifact: %v", err)
	}
	if ok {
		t.Error("expected ok=false for a 404")
	}
	if body != nil {
		t.Errorf("expected nil body, got %v", body)
	}
}

func TestFetchArtifactHit(t *testing.T) {
	want := []byte("cached output")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(want)
	}))
	defer ts.Close()

	c := testClient(ts.URL)
	got, ok, err := c.FetchArtifact("hash1")
	if err != nil {
		t.Fatalf("FetchArtifact: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestArtifactExists(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodHead {
			t.Errorf("method got %v, want HEAD", req.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := testClient(ts.URL)
	exists, err := c.ArtifactExists("hash1")
	if err != nil {
		t.Fatalf("ArtifactExists: %v", err)
	}
	if !exists {
		t.Error("expected exists=true")
	}
}

func TestTooManyFailuresShortCircuits(t *testing.T) {
	// A server that's immediately closed yields connection-refused
	// errors, which is what increments failCount (a bad status code
	// alone triggers a retry, not a failure count bump).
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {}))
	deadURL := ts.URL
	ts.Close()

	c := testClient(deadURL)
	c.httpClient.RetryMax = 0

	for i := 0; i < int(maxFailCount); i++ {
		if _, _, err := c.FetchArtifact("hash1"); err == nil {
			t.Fatalf("call %d: expected a connection error", i)
		}
	}

	if _, _, err := c.FetchArtifact("hash1"); err != ErrTooManyFailures {
		t.Errorf("expected ErrTooManyFailures once failCount reaches the limit, got %v", err)
	}
}
