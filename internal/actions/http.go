// Package actions holds the collaborators that reach outside the process:
// web APIs, mail, chat, the desktop and the operating system.
package actions

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultHTTPClient is used when a collaborator is built without one.
var DefaultHTTPClient = &http.Client{Timeout: 15 * time.Second}

type httpStatusError struct {
	code int
	msg  string
}

func (e *httpStatusError) Error() string {
	if e.msg == "" {
		return fmt.Sprintf("http status %d", e.code)
	}
	return fmt.Sprintf("http status %d: %s", e.code, e.msg)
}

// getJSON fetches rawURL and returns the parsed body. Non-2xx answers are
// returned as *httpStatusError carrying the API's message when it has one.
func getJSON(ctx context.Context, client *http.Client, rawURL string, header http.Header) (gjson.Result, error) {
	if client == nil {
		client = DefaultHTTPClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "terminator/1.0")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return gjson.Result{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := ""
		if gjson.ValidBytes(body) {
			msg = gjson.GetBytes(body, "message").String()
		}
		return gjson.Result{}, &httpStatusError{code: resp.StatusCode, msg: msg}
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("invalid json from %s", req.URL.Host)
	}
	return gjson.ParseBytes(body), nil
}

func statusCode(err error) int {
	if e, ok := err.(*httpStatusError); ok {
		return e.code
	}
	return 0
}
