package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPGateway verifies payment references against the provider's REST API.
type HTTPGateway struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPGateway creates a gateway client for the given provider base URL.
func NewHTTPGateway(baseURL string) *HTTPGateway {
	return &HTTPGateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type settlementResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// Verify implements Gateway.
func (g *HTTPGateway) Verify(ctx context.Context, reference string) (Settlement, error) {
	endpoint := g.baseURL + "/v1/settlements/" + url.PathEscape(reference)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Settlement{}, fmt.Errorf("failed to create settlement request: %w", err)
	}

	resp, err := g.httpClient.Do(request)
	if err != nil {
		return Settlement{}, fmt.Errorf("settlement lookup failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Settlement{}, fmt.Errorf("failed to read settlement response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Settlement{}, fmt.Errorf("settlement lookup returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed settlementResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Settlement{}, fmt.Errorf("failed to decode settlement response: %w", err)
	}

	status := SettlementStatus(parsed.Status)
	if status != SettlementCompleted && status != SettlementPending {
		return Settlement{}, fmt.Errorf("unknown settlement status %q for reference %s", parsed.Status, reference)
	}
	return Settlement{Reference: parsed.Reference, Status: status}, nil
}
