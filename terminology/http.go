package terminology

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofhir/conformance/service"
)

// DefaultHTTPTimeout for terminology server requests.
const DefaultHTTPTimeout = 30 * time.Second

// HTTPProvider validates codes against a FHIR terminology server using
// the ValueSet/$validate-code operation.
type HTTPProvider struct {
	httpClient *http.Client
	baseURL    string
}

// HTTPOption configures the HTTPProvider.
type HTTPOption func(*HTTPProvider)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(p *HTTPProvider) {
		p.httpClient = client
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(p *HTTPProvider) {
		p.httpClient.Timeout = timeout
	}
}

// NewHTTPProvider creates a provider for the terminology server at
// baseURL, e.g. "https://tx.fhir.org/r4".
func NewHTTPProvider(baseURL string, opts ...HTTPOption) *HTTPProvider {
	p := &HTTPProvider{
		httpClient: &http.Client{
			Timeout: DefaultHTTPTimeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// parameters is the subset of a FHIR Parameters resource that
// $validate-code responses carry.
type parameters struct {
	ResourceType string `json:"resourceType"`
	Parameter    []struct {
		Name         string  `json:"name"`
		ValueBoolean *bool   `json:"valueBoolean,omitempty"`
		ValueString  *string `json:"valueString,omitempty"`
	} `json:"parameter"`
}

// ValidateCode implements service.TerminologyProvider by calling
// GET {base}/ValueSet/$validate-code.
func (p *HTTPProvider) ValidateCode(ctx context.Context, valueSetURL, system, code, version string) (bool, error) {
	query := url.Values{}
	query.Set("url", valueSetURL)
	query.Set("code", code)
	if system != "" {
		query.Set("system", system)
	}
	if version != "" {
		query.Set("valueSetVersion", version)
	}

	reqURL := p.baseURL + "/ValueSet/$validate-code?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/fhir+json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("calling terminology server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return false, fmt.Errorf("terminology server returned %d for %s", resp.StatusCode, valueSetURL)
	}

	var params parameters
	if err := json.NewDecoder(resp.Body).Decode(&params); err != nil {
		return false, fmt.Errorf("decoding response: %w", err)
	}
	if params.ResourceType != "Parameters" {
		return false, fmt.Errorf("unexpected resourceType %q", params.ResourceType)
	}

	for _, param := range params.Parameter {
		if param.Name == "result" && param.ValueBoolean != nil {
			return *param.ValueBoolean, nil
		}
	}
	return false, fmt.Errorf("response has no result parameter")
}

// Verify interface compliance.
var _ service.TerminologyProvider = (*HTTPProvider)(nil)
