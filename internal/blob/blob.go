package blob

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
)

var allowedContentTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
}

// ErrUnsupportedContentType is returned before any upstream call when
// the upload is not an accepted image type.
var ErrUnsupportedContentType = fmt.Errorf("unsupported content type")

type Uploader interface {
	Upload(ctx context.Context, pathname, contentType string, body io.Reader) ([]byte, error)
}

// Client proxies raw uploads to the external blob store and hands back
// the store's JSON response untouched.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	log      *log.Logger
}

func NewClient(endpoint, token string, logger *log.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		http:     &http.Client{Timeout: 30 * time.Second},
		log:      logger,
	}
}

func (c *Client) Upload(ctx context.Context, pathname, contentType string, body io.Reader) ([]byte, error) {
	if !slices.Contains(allowedContentTypes, contentType) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}

	// prefix the pathname so concurrent uploads of the same filename
	// never collide in the store
	url := fmt.Sprintf("%s/%s-%s", c.endpoint, uuid.NewString(), pathname)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Printf("blob store returned status %d: %s", resp.StatusCode, respBody)
		return nil, fmt.Errorf("blob store returned status %d", resp.StatusCode)
	}

	return respBody, nil
}
