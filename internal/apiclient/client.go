// Package apiclient habla con la API HTTP de tarjetas en nombre de un usuario autenticado.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"bizcard/internal/domain"
)

// APIError representa una respuesta no 2xx con el mensaje devuelto por el servidor.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status=%d: %s", e.StatusCode, e.Message)
}

// StatusOf devuelve el código HTTP de un *APIError, o 0 si err no lo es.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

func New(baseURL, token string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// WithToken devuelve una copia que autentica con otro access token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) Token() string { return c.token }

func (c *Client) BaseURL() string { return c.baseURL }

type CreateCardRequest struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Color    string `json:"color,omitempty"`
	Template string `json:"template,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Company  string `json:"company,omitempty"`
}

type UpdateCardRequest struct {
	Name     *string `json:"name,omitempty"`
	Title    *string `json:"title,omitempty"`
	Color    *string `json:"color,omitempty"`
	Template *string `json:"template,omitempty"`
}

type NameCheck struct {
	IsValid bool   `json:"is_valid"`
	Error   string `json:"error,omitempty"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type AuthResponse struct {
	User   domain.User `json:"user"`
	Tokens TokenPair   `json:"tokens"`
}

func (c *Client) CreateCard(ctx context.Context, req CreateCardRequest) (domain.BusinessCard, error) {
	var card domain.BusinessCard
	err := c.do(ctx, http.MethodPost, "/cards", req, &card)
	return card, err
}

func (c *Client) ListCards(ctx context.Context) ([]domain.BusinessCard, error) {
	var cards []domain.BusinessCard
	if err := c.do(ctx, http.MethodGet, "/cards", nil, &cards); err != nil {
		return nil, err
	}
	if cards == nil {
		cards = []domain.BusinessCard{}
	}
	return cards, nil
}

func (c *Client) GetCard(ctx context.Context, id string) (domain.BusinessCard, error) {
	var card domain.BusinessCard
	err := c.do(ctx, http.MethodGet, "/cards/"+url.PathEscape(id), nil, &card)
	return card, err
}

func (c *Client) UpdateCard(ctx context.Context, id string, req UpdateCardRequest) (domain.BusinessCard, error) {
	var card domain.BusinessCard
	err := c.do(ctx, http.MethodPut, "/cards/"+url.PathEscape(id), req, &card)
	return card, err
}

func (c *Client) DeleteCard(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/cards/"+url.PathEscape(id), nil, nil)
}

func (c *Client) CheckName(ctx context.Context, name, excludeID string) (NameCheck, error) {
	q := url.Values{}
	q.Set("name", name)
	if excludeID != "" {
		q.Set("exclude_id", excludeID)
	}
	var check NameCheck
	err := c.do(ctx, http.MethodGet, "/cards/check-name?"+q.Encode(), nil, &check)
	return check, err
}

func (c *Client) GetPublicCard(ctx context.Context, id string) (domain.PublicCard, error) {
	var card domain.PublicCard
	err := c.do(ctx, http.MethodGet, "/public-cards/"+url.PathEscape(id), nil, &card)
	return card, err
}

func (c *Client) RequestOTP(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/otp/request", map[string]string{"email": email}, nil)
}

func (c *Client) VerifyOTP(ctx context.Context, email, code, displayName string) (AuthResponse, error) {
	body := map[string]string{"email": email, "code": code, "display_name": displayName}
	var resp AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/otp/verify", body, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		bodyBytes, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &payload) == nil {
			apiErr.Message = payload.Error
		}
		c.logger.Debug("api error response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
