// Package upload stores activity attachments through a multipart upload endpoint.
package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/edgeee/activityfeed/feed"
)

// Client posts attachments as multipart form data, one "files" part each,
// and reads back {"paths": [...]}.
type Client struct {
	url  string
	http *http.Client
}

// New returns a client for the upload endpoint at url.
func New(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{url: url, http: httpClient}
}

// Upload sends files and returns their stored paths in the same order.
func (c *Client) Upload(ctx context.Context, files []feed.Attachment) ([]string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeParts(mw, files))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	res, err := c.http.Do(req)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("upload: unexpected status %d: %s", res.StatusCode, msg)
	}

	var body struct {
		Paths []string `json:"paths"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return body.Paths, nil
}

func writeParts(mw *multipart.Writer, files []feed.Attachment) error {
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		part, err := mw.CreatePart(h)
		if err != nil {
			return fmt.Errorf("create part %s: %w", f.Name, err)
		}
		if f.Body != nil {
			if _, err := io.Copy(part, f.Body); err != nil {
				return fmt.Errorf("copy %s: %w", f.Name, err)
			}
		}
	}
	return mw.Close()
}
