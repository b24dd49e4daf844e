package imagemeta

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"time"

	apperrors "github.com/visionari-app/visionari-backend/pkg/errors"
)

// Dimensions holds the pixel size of a stored image.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Prober resolves pixel dimensions for an image URL.
type Prober interface {
	Probe(ctx context.Context, imageURL string) (Dimensions, error)
}

// Client probes image headers over HTTP. Only the bytes needed by
// image.DecodeConfig are read from the body.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

func (c *Client) Probe(ctx context.Context, imageURL string) (Dimensions, error) {
	if imageURL == "" {
		return Dimensions{}, apperrors.New(apperrors.CodeValidation, "image url is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return Dimensions{}, apperrors.Wrap(apperrors.CodeValidation, err, "invalid image url")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Dimensions{}, apperrors.Wrap(apperrors.CodeDependency, err, "fetch image")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Dimensions{}, apperrors.New(apperrors.CodeDependency, fmt.Sprintf("image fetch returned status %d", resp.StatusCode))
	}

	cfg, _, err := image.DecodeConfig(resp.Body)
	if err != nil {
		return Dimensions{}, apperrors.Wrap(apperrors.CodeValidation, err, "decode image header")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Dimensions{}, apperrors.New(apperrors.CodeValidation, "image has no pixel dimensions")
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}
