package randomuser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/s21platform/user-stream-service/internal/config"
	"github.com/s21platform/user-stream-service/internal/model"
	"github.com/s21platform/user-stream-service/internal/pkg/validator"
)

type response struct {
	Results []model.UserRecord `json:"results"`
	Error   string             `json:"error,omitempty"`
}

type Client struct {
	url        string
	httpClient *http.Client
	vldtr      *validator.Validator
}

func New(cfg *config.Config) *Client {
	return &Client{
		url: cfg.Source.URL,
		httpClient: &http.Client{
			Timeout: cfg.Source.Timeout,
		},
		vldtr: validator.New(),
	}
}

func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// FetchUser requests a single generated user.
func (c *Client) FetchUser(ctx context.Context) (model.UserRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return model.UserRecord{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.UserRecord{}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // .

	if resp.StatusCode != http.StatusOK {
		return model.UserRecord{}, fmt.Errorf("api request failed with status %d", resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.UserRecord{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if body.Error != "" {
		return model.UserRecord{}, fmt.Errorf("api error: %s", body.Error)
	}

	if len(body.Results) == 0 {
		return model.UserRecord{}, fmt.Errorf("api returned no users")
	}

	if err := c.vldtr.ValidateUserRecord(body.Results[0]); err != nil {
		return model.UserRecord{}, fmt.Errorf("api returned an invalid user: %w", err)
	}

	return body.Results[0], nil
}
