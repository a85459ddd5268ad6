package thumbnails

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/picvault/picvault/internal/prefs"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{
			name:    "valid https URL",
			url:     "https://example.com/photo.jpg",
			wantErr: false,
		},
		{
			name:    "valid http URL",
			url:     "http://example.com/photo.jpg",
			wantErr: false,
		},
		{
			name:    "file scheme rejected",
			url:     "file:///etc/passwd",
			wantErr: true,
		},
		{
			name:    "ftp scheme rejected",
			url:     "ftp://example.com/photo.jpg",
			wantErr: true,
		},
		{
			name:    "localhost rejected",
			url:     "http://localhost/photo.jpg",
			wantErr: true,
		},
		{
			name:    "loopback IP rejected",
			url:     "http://127.0.0.1/photo.jpg",
			wantErr: true,
		},
		{
			name:    "private 10.x rejected",
			url:     "http://10.0.0.5/photo.jpg",
			wantErr: true,
		},
		{
			name:    "private 192.168.x rejected",
			url:     "http://192.168.1.10/photo.jpg",
			wantErr: true,
		},
		{
			name:    "link-local rejected",
			url:     "http://169.254.1.1/photo.jpg",
			wantErr: true,
		},
		{
			name:    "missing host rejected",
			url:     "https:///photo.jpg",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateURL(tt.url)
			if tt.wantErr && err == nil {
				t.Errorf("validateURL(%q) expected error, got nil", tt.url)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("validateURL(%q) unexpected error: %v", tt.url, err)
			}
		})
	}
}

func TestHashURLStable(t *testing.T) {
	a := hashURL("https://example.com/a.jpg")
	b := hashURL("https://example.com/a.jpg")
	c := hashURL("https://example.com/b.jpg")

	if a != b {
		t.Errorf("hashURL not stable: %s vs %s", a, b)
	}
	if a == c {
		t.Error("hashURL collision for different URLs")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
}

func TestRenderImageFitsWithinBounds(t *testing.T) {
	dir := t.TempDir()

	src := filepath.Join(dir, "source.png")
	img := image.NewRGBA(image.Rect(0, 0, 800, 600))
	for y := 0; y < 600; y++ {
		for x := 0; x < 800; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	if err := imaging.Save(img, src); err != nil {
		t.Fatalf("failed to write source image: %v", err)
	}

	g := &Generator{MaxWidth: 200, MaxHeight: 200, Quality: 85, BaseDir: dir}

	out := filepath.Join(dir, "thumb.jpg")
	width, height, err := g.renderImage(src, out)
	if err != nil {
		t.Fatalf("renderImage() error = %v", err)
	}
	if width > 200 || height > 200 {
		t.Errorf("thumbnail %dx%d exceeds 200x200", width, height)
	}
	// Aspect ratio preserved: 800x600 fit into 200x200 is 200x150.
	if width != 200 || height != 150 {
		t.Errorf("thumbnail = %dx%d, want 200x150", width, height)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("thumbnail file not written: %v", err)
	}
}

func TestGetCachesGeneratedThumbnail(t *testing.T) {
	dir := t.TempDir()

	store, err := prefs.Open(filepath.Join(dir, "prefs.sqlite"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	g := NewGenerator(100, 100, 85, filepath.Join(dir, "thumbs"), "ffmpeg", store)
	mediaURL := "https://example.com/photo.png"

	// Seed the cache the way generate() does, then verify Get serves from
	// it without fetching. A fetch attempt would fail since example.com is
	// not reachable from the test.
	thumbPath := filepath.Join(dir, "thumbs", "cached.jpg")
	if err := os.MkdirAll(filepath.Dir(thumbPath), 0755); err != nil {
		t.Fatal(err)
	}
	if err := imaging.Save(image.NewRGBA(image.Rect(0, 0, 100, 75)), thumbPath); err != nil {
		t.Fatal(err)
	}
	seeded := prefs.Thumbnail{
		URLHash:   hashURL(mediaURL),
		SourceURL: mediaURL,
		FilePath:  thumbPath,
		Width:     100,
		Height:    75,
	}
	if err := store.SaveThumbnail(seeded); err != nil {
		t.Fatalf("SaveThumbnail() error = %v", err)
	}

	got, err := g.Get(context.Background(), mediaURL, "image")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.FilePath != thumbPath || got.Width != 100 || got.Height != 75 {
		t.Errorf("Get() = %+v, want cached entry", got)
	}
}

func TestGetRejectsDisallowedURL(t *testing.T) {
	dir := t.TempDir()

	store, err := prefs.Open(filepath.Join(dir, "prefs.sqlite"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	g := NewGenerator(100, 100, 85, dir, "ffmpeg", store)

	if _, err := g.Get(context.Background(), "file:///etc/passwd", "image"); err == nil {
		t.Error("Get() expected error for file URL")
	}
}

func TestRenderVideoFrameDisabled(t *testing.T) {
	g := &Generator{MaxWidth: 100, MaxHeight: 100, Quality: 85, VideoMethod: "none", FFmpegPath: "/usr/bin/ffmpeg"}

	if _, _, err := g.renderVideoFrame("in.mp4", "out.jpg"); err == nil {
		t.Error("renderVideoFrame() expected error when method is none")
	}
}
