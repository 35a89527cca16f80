package actions

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"terminator/internal/ports"
)

const wikipediaURL = "https://en.wikipedia.org/api/rest_v1/page/summary/"

// Wikipedia answers with the first sentences of a page summary.
type Wikipedia struct {
	BaseURL   string
	Sentences int
	Client    *http.Client
}

func (w *Wikipedia) Summary(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", ports.ErrNotFound
	}

	base := wikipediaURL
	sentences := 2
	var client *http.Client
	if w != nil {
		if w.BaseURL != "" {
			base = w.BaseURL
		}
		if w.Sentences > 0 {
			sentences = w.Sentences
		}
		client = w.Client
	}

	title := url.PathEscape(strings.ReplaceAll(topic, " ", "_"))
	res, err := getJSON(ctx, client, base+title+"?redirect=true", nil)
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return "", fmt.Errorf("%q: %w", topic, ports.ErrNotFound)
		}
		return "", fmt.Errorf("wikipedia: %w", err)
	}
	if res.Get("type").String() == "disambiguation" {
		return "", fmt.Errorf("%q: %w", topic, ports.ErrAmbiguous)
	}

	extract := strings.TrimSpace(res.Get("extract").String())
	if extract == "" {
		return "", fmt.Errorf("%q: %w", topic, ports.ErrNotFound)
	}
	return firstSentences(extract, sentences), nil
}

func firstSentences(text string, n int) string {
	count := 0
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(text) && text[i+1] != ' ' && text[i+1] != '\n' {
			continue
		}
		count++
		if count == n {
			return text[:i+1]
		}
	}
	return text
}
