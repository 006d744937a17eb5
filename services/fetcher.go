package services

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sunsetd/backend/models"
)

// Fetcher fetches one frame for a capture request. Implementations must
// treat failure as non-fatal to callers: the window scheduler records the
// failure and moves on to the next instant.
type Fetcher interface {
	Fetch(req models.CaptureRequest) ([]byte, error)
}

// ImageFetcher pulls still images from a Nest/Dropcam-style get_image
// endpoint. One HTTP GET per request, no internal retry; the window
// scheduler provides temporal retry by attempting many nearby instants.
type ImageFetcher struct {
	baseURL      string
	defaultWidth int
	client       *http.Client
}

func NewImageFetcher(baseURL string, defaultWidth int) *ImageFetcher {
	return &ImageFetcher{
		baseURL:      baseURL,
		defaultWidth: defaultWidth,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Fetch requests the frame for req. A non-200 status or an empty body is
// an error, not an empty success.
func (f *ImageFetcher) Fetch(req models.CaptureRequest) ([]byte, error) {
	width := req.Width
	if width == 0 {
		width = f.defaultWidth
	}

	params := url.Values{}
	params.Set("uuid", req.CameraID)
	params.Set("width", strconv.Itoa(width))
	params.Set("time", strconv.FormatInt(req.Instant, 10))

	resp, err := f.client.Get(f.baseURL + "?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("image request for %s@%d: %w", req.CameraID, req.Instant, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image request for %s@%d returned %d", req.CameraID, req.Instant, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading image for %s@%d: %w", req.CameraID, req.Instant, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image for %s@%d", req.CameraID, req.Instant)
	}
	return data, nil
}
