package oanda

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tylertayyk/pairs-trading/internal/config"
	"github.com/tylertayyk/pairs-trading/internal/models"
)

// Client is a thin wrapper around the OANDA v20 REST API
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	baseURL    string
	accountID  string
}

// NewClient creates a new OANDA client
func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		baseURL:   cfg.OandaBaseURL,
		accountID: cfg.OandaAccountID,
	}
}

// doRequest performs an HTTP request with auth headers
func (c *Client) doRequest(ctx context.Context, method, url string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.OandaToken)
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}

// parseResponse reads and unmarshals the response
func parseResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(target)
}

// candlePayload matches the v20 candles response; price fields arrive as strings
type candlePayload struct {
	Time     string `json:"time"`
	Complete bool   `json:"complete"`
	Mid      struct {
		O string `json:"o"`
		H string `json:"h"`
		L string `json:"l"`
		C string `json:"c"`
	} `json:"mid"`
}

// GetCandles retrieves mid-price OHLC candles for an instrument. A zero from
// time fetches the most recent CandleCount candles.
func (c *Client) GetCandles(ctx context.Context, instrument string, from time.Time) (*models.CandleSeries, error) {
	params := url.Values{}
	params.Set("granularity", c.cfg.Granularity)
	params.Set("count", strconv.Itoa(c.cfg.CandleCount))
	params.Set("price", "M")
	if !from.IsZero() {
		params.Set("from", from.UTC().Format(time.RFC3339))
	}

	u := fmt.Sprintf("%s/v3/instruments/%s/candles?%s", c.baseURL, url.PathEscape(instrument), params.Encode())
	resp, err := c.doRequest(ctx, "GET", u, nil)
	if err != nil {
		return nil, &MarketDataError{Instrument: instrument, Err: err}
	}

	var result struct {
		Candles []candlePayload `json:"candles"`
	}
	if err := parseResponse(resp, &result); err != nil {
		return nil, &MarketDataError{Instrument: instrument, Err: err}
	}

	series := &models.CandleSeries{
		Instrument: instrument,
		Candles:    make([]models.Candle, 0, len(result.Candles)),
	}
	for _, cp := range result.Candles {
		candle, err := toCandle(cp)
		if err != nil {
			return nil, &MarketDataError{Instrument: instrument, Err: err}
		}
		series.Candles = append(series.Candles, candle)
	}

	return series, nil
}

func toCandle(cp candlePayload) (models.Candle, error) {
	ts, err := time.Parse(time.RFC3339Nano, cp.Time)
	if err != nil {
		return models.Candle{}, fmt.Errorf("parse candle time %q: %w", cp.Time, err)
	}

	var candle models.Candle
	candle.Time = ts
	for _, field := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{cp.Mid.O, &candle.Open},
		{cp.Mid.H, &candle.High},
		{cp.Mid.L, &candle.Low},
		{cp.Mid.C, &candle.Close},
	} {
		d, err := decimal.NewFromString(field.raw)
		if err != nil {
			return models.Candle{}, fmt.Errorf("parse candle price %q: %w", field.raw, err)
		}
		*field.dst = d
	}
	return candle, nil
}

// GetQuote retrieves closeout pricing plus the home-currency conversion
// factor for an instrument
func (c *Client) GetQuote(ctx context.Context, instrument string) (*models.Quote, error) {
	params := url.Values{}
	params.Set("instruments", instrument)
	params.Set("includeHomeConversions", "true")

	u := fmt.Sprintf("%s/v3/accounts/%s/pricing?%s", c.baseURL, url.PathEscape(c.accountID), params.Encode())
	resp, err := c.doRequest(ctx, "GET", u, nil)
	if err != nil {
		return nil, &MarketDataError{Instrument: instrument, Err: err}
	}

	var result struct {
		Prices []struct {
			Instrument                 string `json:"instrument"`
			Time                       string `json:"time"`
			CloseoutBid                string `json:"closeoutBid"`
			CloseoutAsk                string `json:"closeoutAsk"`
			QuoteHomeConversionFactors struct {
				PositiveUnits string `json:"positiveUnits"`
			} `json:"quoteHomeConversionFactors"`
		} `json:"prices"`
	}
	if err := parseResponse(resp, &result); err != nil {
		return nil, &MarketDataError{Instrument: instrument, Err: err}
	}
	if len(result.Prices) == 0 {
		return nil, &MarketDataError{Instrument: instrument, Err: fmt.Errorf("no pricing returned")}
	}

	p := result.Prices[0]
	bid, err := decimal.NewFromString(p.CloseoutBid)
	if err != nil {
		return nil, &MarketDataError{Instrument: instrument, Err: fmt.Errorf("parse bid %q: %w", p.CloseoutBid, err)}
	}
	ask, err := decimal.NewFromString(p.CloseoutAsk)
	if err != nil {
		return nil, &MarketDataError{Instrument: instrument, Err: fmt.Errorf("parse ask %q: %w", p.CloseoutAsk, err)}
	}
	conversion, err := decimal.NewFromString(p.QuoteHomeConversionFactors.PositiveUnits)
	if err != nil {
		return nil, &MarketDataError{Instrument: instrument, Err: fmt.Errorf("parse conversion %q: %w", p.QuoteHomeConversionFactors.PositiveUnits, err)}
	}

	quote := &models.Quote{
		Instrument:       p.Instrument,
		Bid:              bid,
		Ask:              ask,
		ConversionFactor: conversion,
	}
	if ts, err := time.Parse(time.RFC3339Nano, p.Time); err == nil {
		quote.Time = ts
	}
	return quote, nil
}

// GetOpenTrades retrieves the account's open trades for one instrument
func (c *Client) GetOpenTrades(ctx context.Context, instrument string) ([]models.OpenTrade, error) {
	u := fmt.Sprintf("%s/v3/accounts/%s/openTrades", c.baseURL, url.PathEscape(c.accountID))
	resp, err := c.doRequest(ctx, "GET", u, nil)
	if err != nil {
		return nil, &BrokerError{Op: "open trades", Instrument: instrument, Err: err}
	}

	var result struct {
		Trades []struct {
			ID           string `json:"id"`
			Instrument   string `json:"instrument"`
			CurrentUnits string `json:"currentUnits"`
			Price        string `json:"price"`
			OpenTime     string `json:"openTime"`
		} `json:"trades"`
	}
	if err := parseResponse(resp, &result); err != nil {
		return nil, &BrokerError{Op: "open trades", Instrument: instrument, Err: err}
	}

	trades := make([]models.OpenTrade, 0)
	for _, t := range result.Trades {
		if t.Instrument != instrument {
			continue
		}
		units, err := decimal.NewFromString(t.CurrentUnits)
		if err != nil {
			return nil, &BrokerError{Op: "open trades", Instrument: instrument, Err: fmt.Errorf("parse units %q: %w", t.CurrentUnits, err)}
		}
		trade := models.OpenTrade{
			ID:         t.ID,
			Instrument: t.Instrument,
			Units:      units,
		}
		if price, err := decimal.NewFromString(t.Price); err == nil {
			trade.Price = price
		}
		if ts, err := time.Parse(time.RFC3339Nano, t.OpenTime); err == nil {
			trade.OpenTime = ts
		}
		trades = append(trades, trade)
	}

	return trades, nil
}

// CreateMarketOrder submits a fill-or-kill market order for signed units
func (c *Client) CreateMarketOrder(ctx context.Context, instrument string, units int64) error {
	body := map[string]interface{}{
		"order": map[string]interface{}{
			"type":        "MARKET",
			"timeInForce": "FOK",
			"instrument":  instrument,
			"units":       strconv.FormatInt(units, 10),
		},
	}

	u := fmt.Sprintf("%s/v3/accounts/%s/orders", c.baseURL, url.PathEscape(c.accountID))
	resp, err := c.doRequest(ctx, "POST", u, body)
	if err != nil {
		return &BrokerError{Op: "create order", Instrument: instrument, Err: err}
	}

	var result struct {
		OrderFillTransaction *struct {
			ID string `json:"id"`
		} `json:"orderFillTransaction"`
		OrderCancelTransaction *struct {
			Reason string `json:"reason"`
		} `json:"orderCancelTransaction"`
	}
	if err := parseResponse(resp, &result); err != nil {
		return &BrokerError{Op: "create order", Instrument: instrument, Err: err}
	}

	// FOK orders that fail to fill are accepted then cancelled
	if result.OrderCancelTransaction != nil {
		return &BrokerError{Op: "create order", Instrument: instrument,
			Err: fmt.Errorf("order cancelled: %s", result.OrderCancelTransaction.Reason)}
	}

	return nil
}

// ClosePosition closes the long or short side of an instrument position in full
func (c *Client) ClosePosition(ctx context.Context, instrument string, side models.PositionSide) error {
	body := map[string]interface{}{}
	switch side {
	case models.SideLong:
		body["longUnits"] = "ALL"
	case models.SideShort:
		body["shortUnits"] = "ALL"
	default:
		return &BrokerError{Op: "close position", Instrument: instrument, Err: fmt.Errorf("unknown side %q", side)}
	}

	u := fmt.Sprintf("%s/v3/accounts/%s/positions/%s/close", c.baseURL, url.PathEscape(c.accountID), url.PathEscape(instrument))
	resp, err := c.doRequest(ctx, "PUT", u, body)
	if err != nil {
		return &BrokerError{Op: "close position", Instrument: instrument, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return &BrokerError{Op: "close position", Instrument: instrument,
			Err: fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))}
	}

	return nil
}
