package cbr

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/charmap"
)

const (
	Name         = "cbr"
	BaseCurrency = "RUB"

	requestDateLayout = "02/01/2006"
)

// cross rates are rounded to this many places; CBR quotes four
const crossRatePlaces = 8

// the daily sheet is a few kilobytes
const maxBodyBytes = 1 << 20

type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logrus.Logger
	now        func() time.Time
}

func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: timeout,
			},
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		now:     time.Now,
	}
}

func (c *Client) Name() string {
	return Name
}

func (c *Client) FetchRates(ctx context.Context, date string) (*ValCurs, error) {
	url := fmt.Sprintf("%s/XML_daily.asp?date_req=%s", c.baseURL, date)

	c.logger.Debugf("Fetching rates from URL: %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.logger.Errorf("Failed to create request: %v", err)
		return nil, fmt.Errorf("create request: %w", err)
	}

	// CBR rejects requests without a browser-like agent
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	req.Header.Set("Accept", "application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Errorf("Failed to fetch by API: %v", err)
		return nil, fmt.Errorf("fetch error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warnf("CBR responded with status %d", resp.StatusCode)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		c.logger.Errorf("Failed to read response body: %v", err)
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if len(body) > maxBodyBytes {
		c.logger.Errorf("CBR response body exceeds %d bytes", maxBodyBytes)
		return nil, fmt.Errorf("response body exceeds %d bytes", maxBodyBytes)
	}
	if len(body) == 0 {
		c.logger.Error("Empty response body from CBR")
		return nil, errors.New("empty response body")
	}

	c.logger.Debugf("Response body length: %d bytes", len(body))

	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		lower := strings.ToLower(charset)
		if lower == "windows-1251" || lower == "cp1251" {
			return charmap.Windows1251.NewDecoder().Reader(input), nil
		}
		c.logger.Errorf("Unsupported charset: %s", charset)
		return nil, fmt.Errorf("unsupported charset: %s", charset)
	}

	var valCurs ValCurs
	if err := decoder.Decode(&valCurs); err != nil {
		c.logger.Errorf("Failed to parse XML CBR: %v", err)
		c.logger.Debugf("First 500 chars: %s", string(body)[:min(500, len(body))])
		return nil, fmt.Errorf("parse XML: %w", err)
	}

	if len(valCurs.Valutes) == 0 {
		c.logger.Warn("No valutes found in parsed response")
	} else {
		c.logger.Debugf("Successfully parsed %d currencies", len(valCurs.Valutes))
	}

	return &valCurs, nil
}

// PairRate derives from→to through RUB using today's CBR quotes.
func (c *Client) PairRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	valCurs, err := c.FetchRates(ctx, c.now().Format(requestDateLayout))
	if err != nil {
		return decimal.Zero, err
	}

	fromRub, err := valCurs.RubRate(from)
	if err != nil {
		return decimal.Zero, err
	}
	toRub, err := valCurs.RubRate(to)
	if err != nil {
		return decimal.Zero, err
	}

	rate := fromRub.DivRound(toRub, crossRatePlaces)

	c.logger.WithFields(logrus.Fields{
		"from": from,
		"to":   to,
		"rate": rate.String(),
		"date": valCurs.Date,
	}).Debug("Derived cross rate from CBR quotes")

	return rate, nil
}
