package actions

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"terminator/internal/ports"
)

const newsAPIURL = "https://newsapi.org/v2/top-headlines"

type NewsAPI struct {
	Key     string
	Country string
	BaseURL string
	Client  *http.Client
}

func (n *NewsAPI) Headlines(ctx context.Context, count int) ([]string, error) {
	if n == nil || n.Key == "" {
		return nil, ports.ErrNotConfigured
	}

	base := n.BaseURL
	if base == "" {
		base = newsAPIURL
	}
	country := n.Country
	if country == "" {
		country = "us"
	}
	q := url.Values{}
	q.Set("country", country)
	q.Set("pageSize", fmt.Sprint(count))

	res, err := getJSON(ctx, n.Client, base+"?"+q.Encode(), http.Header{"X-Api-Key": {n.Key}})
	if err != nil {
		return nil, fmt.Errorf("newsapi: %w", err)
	}

	var out []string
	for _, t := range res.Get("articles.#.title").Array() {
		title := strings.TrimSpace(t.String())
		if title == "" || title == "[Removed]" {
			continue
		}
		out = append(out, title)
		if len(out) == count {
			break
		}
	}
	if len(out) == 0 {
		return nil, ports.ErrNotFound
	}
	return out, nil
}
