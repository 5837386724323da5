package exchangerate

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

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const Name = "exchangerate"

const maxBodyBytes = 1 << 20

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logrus.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: timeout,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger,
	}
}

func (c *Client) Name() string {
	return Name
}

func (c *Client) FetchPair(ctx context.Context, from, to string) (*PairResponse, error) {
	if c.apiKey == "" {
		return nil, errors.New("exchangerate api key is not configured")
	}

	endpoint := fmt.Sprintf("%s/v6/%s/pair/%s/%s",
		c.baseURL, url.PathEscape(c.apiKey), url.PathEscape(from), url.PathEscape(to))

	log := c.logger.WithFields(logrus.Fields{"from": from, "to": to})
	log.Debug("Fetching pair rate from exchangerate api")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Error("Failed to call exchangerate api")
		return nil, fmt.Errorf("fetch error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("response body exceeds %d bytes", maxBodyBytes)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty response body (status %d)", resp.StatusCode)
	}

	// error payloads come with 4xx statuses and still carry a JSON result
	var pair PairResponse
	if err := json.Unmarshal(body, &pair); err != nil {
		log.WithError(err).Errorf("Failed to decode exchangerate response, status %d", resp.StatusCode)
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if pair.Result != resultSuccess {
		apiErr := &APIError{Result: pair.Result, ErrorType: pair.ErrorType}
		log.WithError(apiErr).Warn("Exchangerate api returned non-success result")
		return nil, apiErr
	}

	return &pair, nil
}

// PairRate returns units of to per one unit of from.
func (c *Client) PairRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	pair, err := c.FetchPair(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	if !pair.ConversionRate.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive conversion rate %s for %s/%s", pair.ConversionRate, from, to)
	}
	return pair.ConversionRate, nil
}
