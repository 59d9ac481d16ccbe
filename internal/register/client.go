package register

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/wyrdstore/wyrd/internal/wyrderr"
)

// Client is a bearer-token-authenticated HTTP client for the register
// REST surface of/6.3.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{BaseURL: baseURL, Token: token, HTTP: http.DefaultClient}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) authorize(req *http.Request) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}

// Head fetches the register's current revision for did. ok is false when
// the register has never seen this DID (404).
func (c *Client) Head(ctx context.Context, did string) (revision string, ok bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.BaseURL+"/"+did, nil)
	if err != nil {
		return "", false, fmt.Errorf("register: build head request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", false, wyrderr.New(wyrderr.Transport, "head request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Header.Get("ETag"), true, nil
	case http.StatusNotFound:
		return "", false, nil
	case http.StatusUnauthorized:
		return "", false, wyrderr.New(wyrderr.Unauthorized, "register rejected credentials", nil)
	default:
		return "", false, wyrderr.New(wyrderr.Transport, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
}

// Put attempts a compare-and-swap update of did's revision: ifMatch must
// equal the register's current ETag, or the call fails with
// RevisionMismatch carrying the actual current revision. The new revision
// travels inside env.Args["revision"]; Put itself is agnostic to its
// shape.
func (c *Client) Put(ctx context.Context, did, ifMatch string, env Envelope, sig []byte) (newETag string, err error) {
	body, err := env.CanonicalBytes()
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.BaseURL+"/"+did, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("register: build put request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("If-Match", ifMatch)
	req.Header.Set("X-Wyrd-Signature", base64.StdEncoding.EncodeToString(sig))
	c.authorize(req)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", wyrderr.New(wyrderr.Transport, "put request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Header.Get("ETag"), nil
	case http.StatusPreconditionFailed:
		actual := resp.Header.Get("ETag")
		return "", wyrderr.Mismatchf(ifMatch, actual)
	case http.StatusUnauthorized:
		return "", wyrderr.New(wyrderr.Unauthorized, "register rejected signature", nil)
	default:
		return "", wyrderr.New(wyrderr.Transport, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
}
