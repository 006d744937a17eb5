package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/nfnt/resize"
)

// Credentials is the four-part tuple the feed API expects. The values come
// from the environment once at startup and are treated as opaque.
type Credentials struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessTokenKey    string
	AccessTokenSecret string
}

// CredentialsFromEnv reads the publish credentials. All four variables are
// required; a missing one is a startup error for publishing commands.
func CredentialsFromEnv() (Credentials, error) {
	creds := Credentials{
		ConsumerKey:       os.Getenv("PUBLISH_CONSUMER_KEY"),
		ConsumerSecret:    os.Getenv("PUBLISH_CONSUMER_SECRET"),
		AccessTokenKey:    os.Getenv("PUBLISH_ACCESS_TOKEN_KEY"),
		AccessTokenSecret: os.Getenv("PUBLISH_ACCESS_TOKEN_SECRET"),
	}
	for name, val := range map[string]string{
		"PUBLISH_CONSUMER_KEY":        creds.ConsumerKey,
		"PUBLISH_CONSUMER_SECRET":     creds.ConsumerSecret,
		"PUBLISH_ACCESS_TOKEN_KEY":    creds.AccessTokenKey,
		"PUBLISH_ACCESS_TOKEN_SECRET": creds.AccessTokenSecret,
	} {
		if val == "" {
			return Credentials{}, fmt.Errorf("missing %s in environment", name)
		}
	}
	return creds, nil
}

// FeedPublisher posts media to the social feed's status endpoint as a
// multipart form. Images wider than maxWidth are downscaled before upload.
type FeedPublisher struct {
	endpoint string
	creds    Credentials
	maxWidth int
	client   *http.Client
}

func NewFeedPublisher(endpoint string, creds Credentials, maxWidth int) *FeedPublisher {
	return &FeedPublisher{
		endpoint: endpoint,
		creds:    creds,
		maxWidth: maxWidth,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Publish posts image with caption and returns the feed's receipt token.
func (p *FeedPublisher) Publish(img []byte, caption string) (string, error) {
	img = p.scaleToWidth(img)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("media", "sunset.jpg")
	if err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if _, err := part.Write(img); err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if err := form.WriteField("status", caption); err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}

	req, err := http.NewRequest("POST", p.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("publish request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("X-Consumer-Key", p.creds.ConsumerKey)
	req.Header.Set("X-Consumer-Secret", p.creds.ConsumerSecret)
	req.Header.Set("X-Access-Token", p.creds.AccessTokenKey)
	req.Header.Set("X-Access-Token-Secret", p.creds.AccessTokenSecret)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("publish request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("publish returned %d: %s", resp.StatusCode, respBody)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding publish response: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("publish response missing receipt id")
	}
	return result.ID, nil
}

// scaleToWidth downscales img to maxWidth if it is wider, re-encoding as
// JPEG. Undecodable input is passed through untouched; the feed will
// reject it with a clearer error than we could produce here.
func (p *FeedPublisher) scaleToWidth(data []byte) []byte {
	if p.maxWidth <= 0 {
		return data
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}
	if img.Bounds().Dx() <= p.maxWidth {
		return data
	}

	scaled := resize.Resize(uint(p.maxWidth), 0, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 85}); err != nil {
		return data
	}
	return buf.Bytes()
}
