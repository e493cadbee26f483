package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/bft-labs/batchq/pkg/log"
)

const ingestEndpoint = "/v1/ingest/batches"

// HTTPConfig configures an HTTP sink.
type HTTPConfig struct {
	// ServiceURL is the base URL of the ingestion service.
	ServiceURL string

	// AuthKey is the bearer token sent with each request.
	AuthKey string

	// Stream is the logical stream name batches belong to, included
	// in headers for server-side routing.
	Stream string
}

// HTTP is a Sink that POSTs each batch as a JSON envelope to an
// ingestion service.
type HTTP[T any] struct {
	client HTTPClient
	cfg    HTTPConfig
	host   string
	logger log.Logger
}

// NewHTTP creates an HTTP sink. A nil client selects an http.Client
// with a 30-second timeout; a nil logger discards output.
func NewHTTP[T any](client HTTPClient, cfg HTTPConfig, logger log.Logger) *HTTP[T] {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = log.Nop()
	}
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &HTTP[T]{client: client, cfg: cfg, host: host, logger: logger}
}

// Ship POSTs the batch. Empty batches send nothing.
func (s *HTTP[T]) Ship(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}

	payload, err := json.Marshal(newEnvelope(items))
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	url := s.cfg.ServiceURL + ingestEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.AuthKey)
	req.Header.Set("X-Batchq-Stream", s.cfg.Stream)
	req.Header.Set("X-Batchq-Hostname", s.host)
	req.Header.Set("X-Batchq-OSArch", runtime.GOOS+"/"+runtime.GOARCH)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Name identifies the sink.
func (s *HTTP[T]) Name() string { return "http" }
