package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://id.twitch.tv/oauth2"

// ErrInvalidToken возвращается, когда сервер не признал токен.
var ErrInvalidToken = errors.New("twitch oauth: invalid access token")

// Validation содержит сведения о токене от /oauth2/validate.
type Validation struct {
	ClientID  string
	Login     string
	UserID    string
	Scopes    []string
	ExpiresIn time.Duration
}

// Client обращается к OAuth-серверу Twitch.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

var defaultClient = Client{}

func (c Client) endpoint(path string) string {
	base := c.BaseURL
	if strings.TrimSpace(base) == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/") + path
}

func (c Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// ValidateToken проверяет пользовательский токен через OAuth-сервер Twitch.
func ValidateToken(ctx context.Context, token string) (Validation, error) {
	return defaultClient.Validate(ctx, token)
}

// GetAppToken запрашивает OAuth токен приложения у Twitch.
func GetAppToken(ctx context.Context, clientID, clientSecret string) (accessToken string, expiresIn time.Duration, err error) {
	return defaultClient.AppToken(ctx, clientID, clientSecret)
}

// Validate проверяет токен и возвращает его логин, области и срок жизни.
func (c Client) Validate(ctx context.Context, token string) (Validation, error) {
	token = strings.TrimPrefix(strings.TrimSpace(token), "oauth:")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/validate"), nil)
	if err != nil {
		return Validation{}, fmt.Errorf("twitch oauth: create request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+token)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Validation{}, fmt.Errorf("twitch oauth: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return Validation{}, ErrInvalidToken
	}
	if err := checkStatus(resp); err != nil {
		return Validation{}, err
	}

	var payload struct {
		ClientID  string   `json:"client_id"`
		Login     string   `json:"login"`
		UserID    string   `json:"user_id"`
		Scopes    []string `json:"scopes"`
		ExpiresIn int64    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Validation{}, fmt.Errorf("twitch oauth: decode response: %w", err)
	}

	return Validation{
		ClientID:  payload.ClientID,
		Login:     payload.Login,
		UserID:    payload.UserID,
		Scopes:    payload.Scopes,
		ExpiresIn: time.Duration(payload.ExpiresIn) * time.Second,
	}, nil
}

// AppToken выполняет client_credentials и возвращает токен приложения.
func (c Client) AppToken(ctx context.Context, clientID, clientSecret string) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("client_id", strings.TrimSpace(clientID))
	form.Set("client_secret", strings.TrimSpace(clientSecret))
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/token"), strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("twitch oauth: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("twitch oauth: request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", 0, err
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", 0, fmt.Errorf("twitch oauth: decode response: %w", err)
	}

	return payload.AccessToken, time.Duration(payload.ExpiresIn) * time.Second, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("twitch oauth: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
}
