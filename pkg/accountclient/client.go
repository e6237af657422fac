package accountclient

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

	"github.com/Layr-Labs/eigenx-relay-go/pkg/bundler"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/host"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// ClientConfig holds the configuration for the relay server client
type ClientConfig struct {
	ServerURL  string
	Logger     *zap.Logger
	HTTPClient *http.Client
}

// Client talks to a relay server over HTTP
type Client struct {
	serverURL  string
	httpClient *http.Client
	logger     *zap.Logger
}

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("relay server returned %d (%s): %s", e.StatusCode, e.Kind, e.Message)
}

// NewClient creates a new relay client
func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.ServerURL == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	if _, err := url.ParseRequestURI(config.ServerURL); err != nil {
		return nil, errors.Wrap(err, "invalid server URL")
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		serverURL:  strings.TrimRight(config.ServerURL, "/"),
		httpClient: httpClient,
		logger:     config.Logger,
	}, nil
}

// Instantiate binds address to a public key
func (c *Client) Instantiate(ctx context.Context, address, sender string, pubKey types.PubKey) (*host.Response, error) {
	var resp host.Response
	err := c.do(ctx, http.MethodPost, accountPath(address, "instantiate"), types.InstantiateRequest{
		Sender: sender,
		Msg:    types.InstantiateMsg{TypeURL: pubKey.TypeURL, Key: pubKey.Key},
	}, &resp)
	if err != nil {
		return nil, err
	}
	c.logger.Sugar().Infow("Account instantiated", "address", address)
	return &resp, nil
}

// Relay submits an encoded envelope for execution by address
func (c *Client) Relay(ctx context.Context, address, sender string, tx []byte) (*host.Response, error) {
	var resp host.Response
	err := c.do(ctx, http.MethodPost, accountPath(address, "execute"), types.ExecuteRequest{
		Sender: sender,
		Msg:    *bundler.NewExecuteMsg(tx),
	}, &resp)
	if err != nil {
		return nil, err
	}
	c.logger.Sugar().Infow("Envelope relayed", "address", address, "operations", len(resp.Messages))
	return &resp, nil
}

func (c *Client) Migrate(ctx context.Context, address, sender string) (*host.Response, error) {
	var resp host.Response
	if err := c.do(ctx, http.MethodPost, accountPath(address, "migrate"), types.MigrateRequest{Sender: sender}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SignerInfo(ctx context.Context, address string) (*types.SignerInfoResponse, error) {
	var resp types.SignerInfoResponse
	if err := c.do(ctx, http.MethodGet, accountPath(address, "signer_info"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Accounts(ctx context.Context) ([]string, error) {
	var resp types.AccountsResponse
	if err := c.do(ctx, http.MethodGet, "/accounts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Accounts, nil
}

func (c *Client) Health(ctx context.Context) (*types.HealthResponse, error) {
	var resp types.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func accountPath(address, action string) string {
	return fmt.Sprintf("/accounts/%s/%s", url.PathEscape(address), action)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Sugar().Debugw("Sending request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to contact relay server at %s", c.serverURL)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp types.ErrorResponse
		if jsonErr := json.Unmarshal(data, &errResp); jsonErr == nil && errResp.Error != "" {
			apiErr.Kind = errResp.Error
			apiErr.Message = errResp.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}
