package ehealth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultPageSize = 50

// Client talks to the eHealth (ESOZ) REST API with bearer-token auth.
type Client struct {
	baseURL    string
	httpClient *http.Client
	pageSize   int
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		pageSize:   defaultPageSize,
	}
}

// errorEnvelope is the eHealth error reply body.
type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Search fetches one page of a paginated resource listing filtered by
// legal entity. All auth-header and error-taxonomy concerns live here;
// callers only see a PagedResponse or an *Error.
func (c *Client) Search(ctx context.Context, token, resource, legalEntityID string, page int) (*PagedResponse, error) {
	query := url.Values{}
	query.Set("legal_entity_id", legalEntityID)
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(c.pageSize))

	endpoint := fmt.Sprintf("%s/api/%s?%s", c.baseURL, resource, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", resource, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", resource, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Code: resp.StatusCode}
		var envelope errorEnvelope
		if err := json.Unmarshal(body, &envelope); err == nil {
			apiErr.Message = envelope.Error.Message
		}
		log.Ctx(ctx).Warn().
			Str("resource", resource).
			Int("page", page).
			Int("status", resp.StatusCode).
			Msg("eHealth request rejected")
		return nil, apiErr
	}

	var paged PagedResponse
	if err := json.Unmarshal(body, &paged); err != nil {
		return nil, fmt.Errorf("failed to decode %s page %d: %w", resource, page, err)
	}

	log.Ctx(ctx).Debug().
		Str("resource", resource).
		Int("page", page).
		Int("records", len(paged.Data)).
		Msg("eHealth page fetched")

	return &paged, nil
}
