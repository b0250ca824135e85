package siwb

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultHTTPTimeout = 30 * time.Second

// authRequest POST /auth 的请求体
type authRequest struct {
	Timestamp  string `json:"timestamp"`
	Signature  string `json:"signature"`
	Delegation string `json:"delegation"`
}

type authResponse struct {
	Token string `json:"token"`
}

// APIClient 交易平台 REST API 客户端
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewAPIClient 创建平台 API 客户端
func NewAPIClient(baseURL string, log zerolog.Logger) *APIClient {
	return &APIClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		log:        log.With().Str("component", "platform_api").Logger(),
	}
}

// ExchangeToken 用委托身份签过名的 timestamp + delegation 链换取平台 JWT
func (c *APIClient) ExchangeToken(ctx context.Context, timestamp string, signature []byte, delegationJSON string) (string, error) {
	body, err := json.Marshal(authRequest{
		Timestamp:  timestamp,
		Signature:  base64.StdEncoding.EncodeToString(signature),
		Delegation: delegationJSON,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal auth request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to build auth request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "auth request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read auth response")
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.log.Warn().Int("status", resp.StatusCode).Bytes("body", raw).Msg("Token exchange rejected")
		return "", errors.Wrapf(ErrTokenExchangeFailed, "platform returned status %d", resp.StatusCode)
	}

	var out authResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", errors.Wrap(err, "malformed auth response")
	}
	if out.Token == "" {
		return "", errors.Wrap(ErrTokenExchangeFailed, "auth response carries no token")
	}

	c.log.Debug().Msg("Token exchange succeeded")
	return out.Token, nil
}

// VerifyToken 带 Bearer token 调 GET /auth 验证 token 仍然有效
func (c *APIClient) VerifyToken(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth", nil)
	if err != nil {
		return errors.Wrap(err, "failed to build verify request")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "verify request failed")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("token verification returned status %d", resp.StatusCode)
	}
	return nil
}
