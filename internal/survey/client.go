// Package survey fetches respondents and their quota cells from the survey
// service.
package survey

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/MikeSquared-Agency/Weighting/internal/generation"
)

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type responsesResponse struct {
	Data []generation.Response `json:"data"`
}

// Responses implements generation.ResponseSource.
func (c *HTTPClient) Responses(ctx context.Context, subsetID string) ([]generation.Response, error) {
	endpoint := c.baseURL + "/api/v1/subsets/" + url.PathEscape(subsetID) + "/responses"
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Agent-ID", "weighting")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("survey: %d %s", resp.StatusCode, string(body))
	}

	var wrapper responsesResponse
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("survey: decode responses for subset %s: %w", subsetID, err)
	}
	return wrapper.Data, nil
}
