package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ArDnath/echo/internal/convert"
)

// apiError is a non-2xx response from the server.
type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("http %d %s: %s", e.Status, e.Code, e.Message)
}

// apiClient calls the Echo HTTP API with an optional bearer token.
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

func newAPIClient(base, token string) *apiClient {
	return &apiClient{
		base:  strings.TrimRight(base, "/"),
		token: token,
		http:  &http.Client{Timeout: 20 * time.Second},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		ae := &apiError{Status: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.NewDecoder(resp.Body).Decode(&e) == nil {
			ae.Code, ae.Message = e.Code, e.Error
		} else {
			ae.Message = http.StatusText(resp.StatusCode)
		}
		return nil, ae
	}
	return resp, nil
}

func (c *apiClient) call(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.do(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func pageQuery(page, size int) string {
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	v.Set("page_size", strconv.Itoa(size))
	return v.Encode()
}

func (c *apiClient) Refresh(ctx context.Context, refresh string) (convert.TokenDTO, error) {
	var out convert.TokenDTO
	err := c.call(ctx, http.MethodPost, "/oauth/token", convert.TokenRequest{GrantType: "refresh_token", RefreshToken: refresh}, &out)
	return out, err
}

func (c *apiClient) Balance(ctx context.Context) (convert.BalanceDTO, error) {
	var out convert.BalanceDTO
	err := c.call(ctx, http.MethodGet, "/v1/me/balance", nil, &out)
	return out, err
}

func (c *apiClient) CreateGrant(ctx context.Context, in convert.GrantRequest) (convert.GrantDTO, error) {
	var out convert.GrantDTO
	err := c.call(ctx, http.MethodPost, "/admin/grants", in, &out)
	return out, err
}

func (c *apiClient) ListGrants(ctx context.Context, page, size int) (convert.PageDTO[convert.GrantDTO], error) {
	var out convert.PageDTO[convert.GrantDTO]
	err := c.call(ctx, http.MethodGet, "/admin/grants?"+pageQuery(page, size), nil, &out)
	return out, err
}

func (c *apiClient) GrantUsages(ctx context.Context, code string, page, size int) (convert.GrantUsagesDTO, error) {
	var out convert.GrantUsagesDTO
	path := "/admin/grants/" + url.PathEscape(code) + "/usages?" + pageQuery(page, size)
	err := c.call(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// ExportUsers returns the server-suggested filename and the CSV body.
func (c *apiClient) ExportUsers(ctx context.Context, after string) (string, []byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/admin/users/export?created_after="+url.QueryEscape(after), nil)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, err
	}
	name := "users.csv"
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	return name, body, nil
}
