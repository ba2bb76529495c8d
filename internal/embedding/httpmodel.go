package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/varmalabs/voicegate/pkg/logger"
)

// HTTPModel talks to an embedding inference sidecar over JSON. The client
// is long-lived and shared across all requests; never construct one per
// request.
type HTTPModel struct {
	url        string
	httpClient *http.Client
	log        *logger.Logger
}

func NewHTTPModel(url string) *HTTPModel {
	return &HTTPModel{
		url:        url,
		httpClient: &http.Client{},
		log:        logger.GetLogger(),
	}
}

type encodeRequest struct {
	Samples    []float64 `json:"samples"`
	SampleRate int       `json:"sample_rate"`
}

type encodeResponse struct {
	// the sidecar may return either a flat vector or a batch of one
	Embedding []float64   `json:"embedding,omitempty"`
	Batch     [][]float64 `json:"embeddings,omitempty"`
}

// Encode posts the waveform to the sidecar and returns the raw vector,
// collapsing a batch dimension of one if the sidecar uses batched output.
func (m *HTTPModel) Encode(ctx context.Context, samples []float64, sampleRate int) ([]float64, error) {
	payload, err := json.Marshal(encodeRequest{Samples: samples, SampleRate: sampleRate})
	if err != nil {
		return nil, fmt.Errorf("embedding model: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("embedding model: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding model: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding model: inference error status %d", resp.StatusCode)
	}

	var result encodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embedding model: decode response: %w", err)
	}

	vec := result.Embedding
	if vec == nil && len(result.Batch) > 0 {
		vec = result.Batch[0]
	}
	m.log.Debugf("Embedding model returned %d dimensions", len(vec))
	return vec, nil
}
