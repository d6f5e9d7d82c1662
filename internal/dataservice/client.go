package dataservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"wavespush/internal/models"
)

// Client queries the public data service for the bootstrap state the
// processor needs: where to start reading the chain and the last trade price
// of every pair.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type exchangeTxResponse struct {
	Data []struct {
		Data struct {
			Height uint64 `json:"height"`
		} `json:"data"`
	} `json:"data"`
}

// LastExchangeHeight returns the height of the matcher's most recent exchange
// transaction. found is false when the matcher has never traded.
func (c *Client) LastExchangeHeight(ctx context.Context, matcher models.Address) (height uint64, found bool, err error) {
	u := fmt.Sprintf("%s/transactions/exchange?sender=%s&limit=1",
		c.baseURL, url.QueryEscape(matcher.String()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, false, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("data service exchange transactions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, false, fmt.Errorf("data service exchange transactions: status %s", resp.Status)
	}

	var body exchangeTxResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, false, fmt.Errorf("decode exchange transactions: %w", err)
	}
	if len(body.Data) == 0 {
		return 0, false, nil
	}
	return body.Data[0].Data.Height, true, nil
}

type pairsResponse struct {
	Data []struct {
		AmountAsset string `json:"amountAsset"`
		PriceAsset  string `json:"priceAsset"`
		Data        struct {
			LastPrice float64 `json:"lastPrice"`
		} `json:"data"`
	} `json:"data"`
}

// LastPairPrices returns the last trade price per asset pair, used to seed
// the price aggregators so the first observed block already has a previous
// close to carry over.
func (c *Client) LastPairPrices(ctx context.Context) (map[models.AssetPair]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/pairs", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("data service pairs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("data service pairs: status %s", resp.Status)
	}

	var body pairsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode pairs: %w", err)
	}

	prices := make(map[models.AssetPair]float64, len(body.Data))
	for _, pair := range body.Data {
		amountAsset, err := models.ParseAsset(pair.AmountAsset)
		if err != nil {
			continue
		}
		priceAsset, err := models.ParseAsset(pair.PriceAsset)
		if err != nil {
			continue
		}
		prices[models.AssetPair{AmountAsset: amountAsset, PriceAsset: priceAsset}] = pair.Data.LastPrice
	}
	return prices, nil
}
