// Package textextract reads the text of input documents. Plain text is read
// directly; PDF, Office and similar formats are sent to an Apache Tika
// server.
package textextract

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// SupportedMimeTypes are the formats sent to Tika.
var SupportedMimeTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.oasis.opendocument.text",
	"application/rtf",
	"text/rtf",
	"text/html",
}

// ErrNoExtractor is returned for a non-text document when no Tika server
// is configured.
var ErrNoExtractor = errors.New("no text extractor configured")

// Client extracts document text.
type Client struct {
	serverURL  string
	httpClient *http.Client
}

// NewClient creates a client for the Tika server at serverURL
// (e.g. http://localhost:9998). An empty URL limits the client to plain text.
func NewClient(serverURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ReadFile returns the text of the document at path.
func (c *Client) ReadFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", path)
	}

	contentType := detectContentType(path, data)
	if isPlainText(contentType) {
		return string(data), nil
	}
	text, err := c.ExtractText(ctx, data, contentType)
	if err != nil {
		return "", errors.Wrapf(err, "failed to extract text from %s", path)
	}
	return text, nil
}

// ExtractText sends data to the Tika server and returns the plain text.
func (c *Client) ExtractText(ctx context.Context, data []byte, contentType string) (string, error) {
	if !IsSupported(contentType) {
		return "", errors.Errorf("unsupported content type: %s", contentType)
	}
	if c.serverURL == "" {
		return "", ErrNoExtractor
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.serverURL+"/tika", bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "tika request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", errors.Errorf("tika server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response")
	}
	return string(text), nil
}

// IsSupported reports whether Tika extraction applies to contentType.
func IsSupported(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	for _, supported := range SupportedMimeTypes {
		if strings.EqualFold(mediaType, supported) {
			return true
		}
	}
	return false
}

func isPlainText(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/plain" || mediaType == "text/markdown"
}

// detectContentType uses the extension first, then content sniffing.
func detectContentType(path string, data []byte) string {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".text":
		return "text/plain; charset=utf-8"
	case ".md", ".markdown":
		return "text/markdown; charset=utf-8"
	default:
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
	}
	return http.DetectContentType(data)
}
