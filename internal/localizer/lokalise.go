package localizer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// lokalisePageSize is the maximum page size the keys endpoint accepts.
const lokalisePageSize = 500

// LokaliseClient fetches the translation table from the Lokalise API.
type LokaliseClient struct {
	baseURL   string
	token     string
	projectID string
	client    *http.Client
}

func NewLokaliseClient(baseURL, token, projectID string) *LokaliseClient {
	return &LokaliseClient{
		baseURL:   baseURL,
		token:     token,
		projectID: projectID,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type lokaliseKey struct {
	KeyName struct {
		Other string `json:"other"`
	} `json:"key_name"`
	Translations []struct {
		LanguageISO string `json:"language_iso"`
		Translation string `json:"translation"`
	} `json:"translations"`
}

type lokaliseKeysPage struct {
	Keys []lokaliseKey `json:"keys"`
}

// FetchTable downloads every key with its translations, paginating until a
// short page. The result maps key → language → text.
func (c *LokaliseClient) FetchTable(ctx context.Context) (map[string]map[string]string, error) {
	table := make(map[string]map[string]string)

	for page := 1; ; page++ {
		keys, err := c.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			name := key.KeyName.Other
			if name == "" {
				continue
			}
			langs := table[name]
			if langs == nil {
				langs = make(map[string]string)
				table[name] = langs
			}
			for _, tr := range key.Translations {
				if tr.Translation != "" {
					langs[tr.LanguageISO] = tr.Translation
				}
			}
		}
		if len(keys) < lokalisePageSize {
			return table, nil
		}
	}
}

func (c *LokaliseClient) fetchPage(ctx context.Context, page int) ([]lokaliseKey, error) {
	url := fmt.Sprintf("%s/projects/%s/keys?include_translations=1&limit=%d&page=%d",
		c.baseURL, c.projectID, lokalisePageSize, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Token", c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lokalise keys page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("lokalise keys page %s: status %s",
			strconv.Itoa(page), resp.Status)
	}

	var body lokaliseKeysPage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode lokalise keys page %d: %w", page, err)
	}
	return body.Keys, nil
}
