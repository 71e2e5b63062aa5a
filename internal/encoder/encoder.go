// Package encoder talks to the face embedding service. The service
// receives a JPEG frame and returns a fixed-dimension embedding, or
// reports that no face was found in the frame.
package encoder

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNoFace reports that the service found no face in the frame. It is
// an expected condition, not a failure.
var ErrNoFace = errors.New("no face detected in frame")

// maxFrameSize bounds the image sent to the service. Camera frames
// come in larger; the embedding model ignores detail beyond this.
const maxFrameSize = 640

// Client calls the embedding service over HTTP.
type Client struct {
	parsedURL *url.URL
	client    *http.Client
	dim       int
}

// New creates a client for the embedding service at baseURL. dim is
// the expected embedding dimension; responses of any other length are
// rejected.
func New(baseURL string, dim int) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid embedding service URL: %w", err)
	}

	return &Client{
		parsedURL: parsed,
		client:    &http.Client{Timeout: 30 * time.Second},
		dim:       dim,
	}, nil
}

type encodeRequest struct {
	Image string `json:"image"`
}

type encodeResponse struct {
	Embedding []float32 `json:"embedding"`
	FaceFound bool      `json:"face_found"`
	Error     string    `json:"error,omitempty"`
}

// Encode sends a frame to the service and returns its embedding.
// Returns ErrNoFace when the service saw no face. The frame is resized
// before upload to keep request bodies small.
func (c *Client) Encode(ctx context.Context, frame []byte) ([]float32, error) {
	resized, err := ResizeImage(frame, maxFrameSize)
	if err != nil {
		return nil, fmt.Errorf("could not prepare frame: %w", err)
	}

	jsonBody, err := json.Marshal(encodeRequest{
		Image: base64.StdEncoding.EncodeToString(resized),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqURL := c.parsedURL.JoinPath("/encode")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service error (status %d): %s", resp.StatusCode, string(body))
	}

	var encoded encodeResponse
	if err := json.Unmarshal(body, &encoded); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if encoded.Error != "" {
		return nil, fmt.Errorf("embedding service error: %s", encoded.Error)
	}
	if !encoded.FaceFound {
		return nil, ErrNoFace
	}
	if len(encoded.Embedding) != c.dim {
		return nil, fmt.Errorf("embedding service returned %d dimensions, expected %d", len(encoded.Embedding), c.dim)
	}

	return encoded.Embedding, nil
}
