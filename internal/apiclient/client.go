// Package apiclient habla con la API del tracker y decodifica el sobre
// {success, data, error} de cada respuesta.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Response es el sobre común de la API.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// HasData indica si el sobre trae un data no nulo.
func (r Response) HasData() bool {
	d := bytes.TrimSpace(r.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

// Client implementa las llamadas GET/POST contra la API con un cookie jar propio.
type Client struct {
	baseURL   string
	cookieURL *url.URL
	jar       *resettableJar
	client    *http.Client
	logger    *zap.Logger
}

// New construye un cliente apuntando a baseURL (ej. http://localhost:5000/api).
func New(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	baseURL = strings.TrimRight(baseURL, "/")
	u, err := url.Parse(baseURL + "/")
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parse base url: %q is not absolute", baseURL)
	}
	jar, err := newResettableJar()
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:   baseURL,
		cookieURL: u,
		jar:       jar,
		client:    &http.Client{Timeout: timeout, Jar: jar},
		logger:    logger,
	}, nil
}

// BaseURL devuelve la raíz de la API sin barra final.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get decodifica data de GET path en out (si out no es nil).
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post envía body como JSON y decodifica data en out (si out no es nil).
func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("api request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	var env Response
	if err := json.Unmarshal(respBody, &env); err != nil {
		if resp.StatusCode >= 400 {
			return &StatusError{Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
		}
		return fmt.Errorf("decode envelope: %w", err)
	}
	if !env.Success {
		return &RejectedError{Path: path, Status: resp.StatusCode, Message: errorMessage(env.Error)}
	}
	if out == nil {
		return nil
	}
	if !env.HasData() {
		return fmt.Errorf("%s: %w", path, ErrEmptyData)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// errorMessage aplana el campo error del sobre, que puede ser string u objeto.
func errorMessage(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(raw)
}
