// Package search builds reference text for prompts from keyword searches.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

const naverBlogURL = "https://openapi.naver.com/v1/search/blog.json"

// Item is one search hit.
type Item struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
}

// Result is the outcome of one search call.
type Result struct {
	Items   []Item
	Success bool
}

// Provider runs a keyword search.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) (*Result, error)
}

// NaverClient searches Naver blog posts through the Naver Open API.
type NaverClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	client       *http.Client
}

// NewNaverClient creates a client with explicit credentials.
func NewNaverClient(clientID, clientSecret string) *NaverClient {
	return &NaverClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      naverBlogURL,
		client:       &http.Client{Timeout: 10 * time.Second},
	}
}

// NewNaverClientFromEnv reads NAVER_CLIENT_ID and NAVER_CLIENT_SECRET.
func NewNaverClientFromEnv() (*NaverClient, error) {
	id, secret := os.Getenv("NAVER_CLIENT_ID"), os.Getenv("NAVER_CLIENT_SECRET")
	if id == "" || secret == "" {
		return nil, fmt.Errorf("NAVER_CLIENT_ID and NAVER_CLIENT_SECRET environment variables are required for search")
	}
	return NewNaverClient(id, secret), nil
}

// WithBaseURL points the client at another endpoint (used in tests).
func (c *NaverClient) WithBaseURL(u string) *NaverClient {
	c.baseURL = u
	return c
}

type naverResponse struct {
	Total   int    `json:"total"`
	Display int    `json:"display"`
	Items   []Item `json:"items"`
}

type naverError struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorCode    string `json:"errorCode"`
}

// Search implements Provider.
func (c *NaverClient) Search(ctx context.Context, query string, maxResults int) (*Result, error) {
	if maxResults <= 0 || maxResults > 100 {
		maxResults = 5
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("display", strconv.Itoa(maxResults))
	params.Set("sort", "sim")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Naver-Client-Id", c.clientID)
	req.Header.Set("X-Naver-Client-Secret", c.clientSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr naverError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.ErrorMessage != "" {
			return nil, fmt.Errorf("naver search error (status %d, %s): %s", resp.StatusCode, apiErr.ErrorCode, apiErr.ErrorMessage)
		}
		return nil, fmt.Errorf("naver search error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed naverResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return &Result{Items: parsed.Items, Success: true}, nil
}
