// Package boosty is a client for the private Boosty web API.
package boosty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.boosty.to"

const maxBodySize = 5 * 1024 * 1024

// ErrAPI is returned when the API rejects a request or answers with an
// unexpected body.
var ErrAPI = errors.New("boosty api")

// The API refuses requests that do not look like they come from the web app.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:91.0) Gecko/20100101 Firefox/91.0",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "en-US,en;q=0.5",
	"Content-Type":    "application/x-www-form-urlencoded",
	"X-App":           "web",
	"X-Referer":       "",
	"Sec-Fetch-Dest":  "empty",
	"Sec-Fetch-Mode":  "cors",
	"Sec-Fetch-Site":  "same-site",
}

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the Boosty API.
type Client struct {
	baseURL     string
	http        HTTPClient
	deviceID    string
	accessToken string
}

// New creates a Client for baseURL.
func New(baseURL string, client HTTPClient) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
	}
}

// WithCredentials returns a copy of c that signs blog and post requests.
func (c *Client) WithCredentials(deviceID, accessToken string) *Client {
	cp := *c
	cp.deviceID = deviceID
	cp.accessToken = accessToken
	return &cp
}

// AuthorizePhone asks the API to send an SMS code to phone and returns the
// short-lived code that has to accompany it.
func (c *Client) AuthorizePhone(ctx context.Context, deviceID, phone string) (string, error) {
	form := url.Values{}
	form.Set("client_id", phone)

	var resp authorizeResponse
	if err := c.do(ctx, http.MethodPost, "/oauth/phone/authorize", form, deviceID, "", &resp); err != nil {
		return "", err
	}
	if resp.Code == "" {
		return "", fmt.Errorf("%w: authorize response missing code", ErrAPI)
	}
	return resp.Code, nil
}

// ExchangeSMSCode trades the SMS code for a token pair.
func (c *Client) ExchangeSMSCode(ctx context.Context, deviceID, phone, smsCode, code string) (*Token, error) {
	form := url.Values{}
	form.Set("device_id", deviceID)
	form.Set("sms_code", smsCode)
	form.Set("device_os", "web")
	form.Set("client_id", phone)
	form.Set("code", code)

	var tok Token
	if err := c.do(ctx, http.MethodPost, "/oauth/phone/token", form, deviceID, "", &tok); err != nil {
		return nil, err
	}
	if err := checkToken(&tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// RefreshToken exchanges refreshToken for a new token pair.
func (c *Client) RefreshToken(ctx context.Context, deviceID, accessToken, refreshToken string) (*Token, error) {
	form := url.Values{}
	form.Set("device_id", deviceID)
	form.Set("device_os", "web")
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	var tok Token
	if err := c.do(ctx, http.MethodPost, "/oauth/token/", form, deviceID, accessToken, &tok); err != nil {
		return nil, err
	}
	if err := checkToken(&tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// Blog returns the blog metadata of author.
func (c *Client) Blog(ctx context.Context, author string) (*Blog, error) {
	var blog Blog
	path := "/v1/blog/" + url.PathEscape(author)
	if err := c.do(ctx, http.MethodGet, path, nil, c.deviceID, c.accessToken, &blog); err != nil {
		return nil, err
	}
	return &blog, nil
}

// Posts returns the first page of author's posts.
func (c *Client) Posts(ctx context.Context, author string) ([]Post, error) {
	var resp postsResponse
	path := "/v1/blog/" + url.PathEscape(author) + "/post/"
	if err := c.do(ctx, http.MethodGet, path, nil, c.deviceID, c.accessToken, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func checkToken(tok *Token) error {
	var missing []string
	if tok.AccessToken == "" {
		missing = append(missing, "access_token")
	}
	if tok.RefreshToken == "" {
		missing = append(missing, "refresh_token")
	}
	if tok.ExpiresIn <= 0 {
		missing = append(missing, "expires_in")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: token response missing %s", ErrAPI, strings.Join(missing, ", "))
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, deviceID, bearer string, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}
	req.Header.Set("X-From-Id", deviceID)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrAPI, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrAPI, method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: decode body: %w", ErrAPI, method, path, err)
	}
	return nil
}
