package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// cachedResponse holds the response fields worth replaying from disk.
type cachedResponse struct {
	Status     string              `json:"status"`
	StatusCode int                 `json:"status_code"`
	Proto      string              `json:"proto"`
	Header     map[string][]string `json:"header"`
	Body       []byte              `json:"body"`
}

// CachingRoundTripper caches successful responses on disk keyed by method,
// URL and request body, so a re-run against the same date range does not hit
// the upstream APIs again. Failures are never cached; the retry layer above
// must see them fresh.
type CachingRoundTripper struct {
	UnderlyingTransport http.RoundTripper
	CacheDir            string
}

func (c *CachingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	transport := c.UnderlyingTransport
	if transport == nil {
		transport = http.DefaultTransport
	}

	var bodyBytes []byte
	if req.Body != nil {
		bodyBytes, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}

	path := c.cachePath(req.Method, req.URL.String(), bodyBytes)
	if data, err := os.ReadFile(path); err == nil {
		var cr cachedResponse
		if err := json.Unmarshal(data, &cr); err == nil {
			return replayResponse(req, cr), nil
		}
	}

	resp, err := transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	cr := cachedResponse{
		Status:     resp.Status,
		StatusCode: resp.StatusCode,
		Proto:      resp.Proto,
		Header:     resp.Header.Clone(),
		Body:       respBody,
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if data, err := json.Marshal(&cr); err == nil {
			_ = os.WriteFile(path, data, 0644)
		}
	}

	return replayResponse(req, cr), nil
}

func (c *CachingRoundTripper) cachePath(method, url string, body []byte) string {
	hash := sha256.New()
	hash.Write([]byte(method))
	hash.Write([]byte(url))
	hash.Write(body)
	return filepath.Join(c.CacheDir, hex.EncodeToString(hash.Sum(nil))+".json")
}

func replayResponse(req *http.Request, cr cachedResponse) *http.Response {
	return &http.Response{
		Status:        cr.Status,
		StatusCode:    cr.StatusCode,
		Proto:         cr.Proto,
		Header:        cr.Header,
		Body:          io.NopCloser(bytes.NewReader(cr.Body)),
		ContentLength: int64(len(cr.Body)),
		Request:       req,
	}
}
