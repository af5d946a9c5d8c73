package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"github.com/totegamma/portfolio"
	"github.com/totegamma/portfolio/internal/domain"
)

const (
	defaultTimeout = 3 * time.Second
	// VerifyCacheTTL bounds how long a revoked token keeps working.
	VerifyCacheTTL = time.Minute
)

// Client talks to the auth service.
type Client struct {
	client    *http.Client
	cache     *cache.Cache
	userAgent string
	baseURL   string
}

func New(baseURL string) *Client {
	httpClient := http.Client{
		Timeout: defaultTimeout,
	}

	zap.L().Info("initialize auth client", zap.String("baseURL", baseURL))
	c := &Client{
		client:    &httpClient,
		cache:     cache.New(VerifyCacheTTL, 5*time.Minute),
		userAgent: "portfolio-api",
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
	httpClient.Transport = c
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	return http.DefaultTransport.RoundTrip(req)
}

func (c *Client) HttpRequest(ctx context.Context, method, path, token string, body, response any) error {
	if c.baseURL == "" {
		return fmt.Errorf("auth service url is not configured")
	}

	var payload *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %v", err)
		}
		payload = bytes.NewReader(b)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return domain.UnauthorizedError{Reason: "rejected by auth service"}
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if response == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}
	return nil
}

// Verify resolves a bearer token to an admin identity. Successful answers are
// cached by token hash; rejections are not.
func (c *Client) Verify(ctx context.Context, token string) (portfolio.AdminIdentity, error) {
	if token == "" {
		return portfolio.AdminIdentity{}, domain.UnauthorizedError{Reason: "missing token"}
	}

	cacheKey := "verify:" + strconv.FormatUint(xxh3.HashString(token), 16)
	if x, found := c.cache.Get(cacheKey); found {
		return x.(portfolio.AdminIdentity), nil
	}

	var identity portfolio.AdminIdentity
	if err := c.HttpRequest(ctx, http.MethodGet, "/verify", token, nil, &identity); err != nil {
		return portfolio.AdminIdentity{}, err
	}
	if identity.ID == "" {
		return portfolio.AdminIdentity{}, domain.UnauthorizedError{Reason: "empty identity"}
	}

	c.cache.Set(cacheKey, identity, cache.DefaultExpiration)
	return identity, nil
}

func (c *Client) Login(ctx context.Context, req portfolio.LoginRequest) (portfolio.LoginResponse, error) {
	var resp portfolio.LoginResponse
	err := c.HttpRequest(ctx, http.MethodPost, "/login", "", req, &resp)
	return resp, err
}
