// Package userclient asks the user service whether an owner exists.
package userclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Client calls GET {baseURL}/users/getById/{id}. Only a 200 response means
// the user exists; calls are not retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// UserExists reports whether the directory knows userID. Transport failures
// are returned as errors.
func (c *Client) UserExists(ctx context.Context, userID string) (bool, error) {
	endpoint := c.baseURL + "/users/getById/" + url.PathEscape(userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build user lookup request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("User service unreachable", zap.String("user_id", userID), zap.Error(err))
		return false, fmt.Errorf("failed to reach user service: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		c.logger.Info("User lookup rejected",
			zap.String("user_id", userID),
			zap.Int("status", resp.StatusCode),
		)
		return false, nil
	}
	return true, nil
}
