package services

import (
	"bytes"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("PUBLISH_CONSUMER_KEY", "ck")
	t.Setenv("PUBLISH_CONSUMER_SECRET", "cs")
	t.Setenv("PUBLISH_ACCESS_TOKEN_KEY", "ak")
	t.Setenv("PUBLISH_ACCESS_TOKEN_SECRET", "as")

	creds, err := CredentialsFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.ConsumerKey != "ck" || creds.AccessTokenSecret != "as" {
		t.Errorf("credentials not read: %+v", creds)
	}

	t.Setenv("PUBLISH_ACCESS_TOKEN_SECRET", "")
	if _, err := CredentialsFromEnv(); err == nil {
		t.Error("expected error for missing credential")
	}
}

func TestFeedPublisher(t *testing.T) {
	var caption, consumerKey string
	var mediaLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing form: %v", err)
		}
		caption = r.FormValue("status")
		consumerKey = r.Header.Get("X-Consumer-Key")

		file, _, err := r.FormFile("media")
		if err != nil {
			t.Errorf("media part: %v", err)
		} else {
			data, _ := io.ReadAll(file)
			mediaLen = len(data)
			file.Close()
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"post-42"}`))
	}))
	defer srv.Close()

	creds := Credentials{ConsumerKey: "ck", ConsumerSecret: "cs", AccessTokenKey: "ak", AccessTokenSecret: "as"}
	p := NewFeedPublisher(srv.URL, creds, 0)

	receipt, err := p.Publish([]byte("raw-jpeg"), "Today's Sunset")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if receipt != "post-42" {
		t.Errorf("receipt = %q, want post-42", receipt)
	}
	if caption != "Today's Sunset" {
		t.Errorf("caption = %q", caption)
	}
	if consumerKey != "ck" {
		t.Errorf("consumer key header = %q", consumerKey)
	}
	if mediaLen != len("raw-jpeg") {
		t.Errorf("media length = %d", mediaLen)
	}
}

func TestFeedPublisherRejectedPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewFeedPublisher(srv.URL, Credentials{}, 0)
	if _, err := p.Publish([]byte("x"), "c"); err == nil {
		t.Error("expected error for rejected post")
	}
}

func TestFeedPublisherMissingReceipt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	p := NewFeedPublisher(srv.URL, Credentials{}, 0)
	if _, err := p.Publish([]byte("x"), "c"); err == nil {
		t.Error("expected error for response without receipt id")
	}
}

func TestScaleToWidth(t *testing.T) {
	// Encode a 400px-wide JPEG and scale it down to 200.
	src := image.NewRGBA(image.Rect(0, 0, 400, 300))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, nil); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}

	p := NewFeedPublisher("http://unused", Credentials{}, 200)
	scaled := p.scaleToWidth(buf.Bytes())

	img, _, err := image.Decode(bytes.NewReader(scaled))
	if err != nil {
		t.Fatalf("decoding scaled image: %v", err)
	}
	if img.Bounds().Dx() != 200 {
		t.Errorf("scaled width = %d, want 200", img.Bounds().Dx())
	}

	// Already-small and undecodable inputs pass through untouched.
	small := buf.Bytes()
	p2 := NewFeedPublisher("http://unused", Credentials{}, 800)
	if got := p2.scaleToWidth(small); !bytes.Equal(got, small) {
		t.Error("small image should pass through unchanged")
	}
	if got := p.scaleToWidth([]byte("not an image")); string(got) != "not an image" {
		t.Error("undecodable input should pass through unchanged")
	}
}
