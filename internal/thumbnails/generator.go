// Package thumbnails fetches remote media and produces reduced local
// thumbnails. It backs the data saving mode: once generated, a thumbnail is
// served from disk instead of refetching the full media.
package thumbnails

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"

	"github.com/picvault/picvault/internal/prefs"
)

// maxFetchSize bounds how much remote media is read for one thumbnail.
const maxFetchSize = 100 * 1024 * 1024

// Generator fetches media and renders thumbnails into BaseDir, indexing
// them through the preference store's thumbnail cache.
type Generator struct {
	MaxWidth    int
	MaxHeight   int
	Quality     int
	BaseDir     string
	VideoMethod string
	FFmpegPath  string

	store      *prefs.Store
	httpClient *http.Client
}

// NewGenerator creates a thumbnail generator backed by the given cache store.
func NewGenerator(maxWidth, maxHeight, quality int, baseDir string, videoMethod string, store *prefs.Store) *Generator {
	ffmpegPath, _ := exec.LookPath("ffmpeg")

	return &Generator{
		MaxWidth:    maxWidth,
		MaxHeight:   maxHeight,
		Quality:     quality,
		BaseDir:     baseDir,
		VideoMethod: videoMethod,
		FFmpegPath:  ffmpegPath,
		store:       store,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// hashURL derives the stable cache key and file stem for a media URL.
func hashURL(mediaURL string) string {
	sum := sha256.Sum256([]byte(mediaURL))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached thumbnail for a media URL, generating it on a miss.
// mediaType is the record's file type ("image" or "video").
func (g *Generator) Get(ctx context.Context, mediaURL, mediaType string) (*prefs.Thumbnail, error) {
	urlHash := hashURL(mediaURL)

	cached, err := g.store.GetThumbnail(urlHash)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		if _, err := os.Stat(cached.FilePath); err == nil {
			return cached, nil
		}
		log.Debugf("Cached thumbnail file missing, regenerating: %s", cached.FilePath)
	}

	return g.generate(ctx, mediaURL, mediaType, urlHash)
}

func (g *Generator) generate(ctx context.Context, mediaURL, mediaType, urlHash string) (*prefs.Thumbnail, error) {
	if err := os.MkdirAll(g.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	media, err := g.fetch(ctx, mediaURL)
	if err != nil {
		return nil, err
	}

	thumbnailPath := filepath.Join(g.BaseDir, urlHash+".jpg")

	var width, height int
	switch mediaType {
	case "video":
		width, height, err = g.renderVideoFrame(media, thumbnailPath)
	default:
		width, height, err = g.renderImage(media, thumbnailPath)
	}
	os.Remove(media)
	if err != nil {
		return nil, err
	}

	thumb := prefs.Thumbnail{
		URLHash:   urlHash,
		SourceURL: mediaURL,
		FilePath:  thumbnailPath,
		Width:     width,
		Height:    height,
	}
	if err := g.store.SaveThumbnail(thumb); err != nil {
		os.Remove(thumbnailPath)
		return nil, err
	}

	log.Debugf("Generated thumbnail %dx%d for %s", width, height, mediaURL)
	return &thumb, nil
}

// fetch downloads the media into a temporary file and returns its path.
func (g *Generator) fetch(ctx context.Context, mediaURL string) (string, error) {
	if err := validateURL(mediaURL); err != nil {
		return "", fmt.Errorf("invalid media URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("media fetch failed with status %d", resp.StatusCode)
	}

	if contentLength := resp.Header.Get("Content-Length"); contentLength != "" {
		if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil && size > maxFetchSize {
			return "", fmt.Errorf("media too large: %d bytes (max %d)", size, maxFetchSize)
		}
	}

	tmp, err := os.CreateTemp(g.BaseDir, "fetch-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	written, err := io.Copy(tmp, io.LimitReader(resp.Body, maxFetchSize+1))
	tmp.Close()
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to read media content: %w", err)
	}
	if written > maxFetchSize {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("media too large: exceeds %d bytes", maxFetchSize)
	}

	return tmp.Name(), nil
}

// renderImage resizes an image file into a JPEG thumbnail.
func (g *Generator) renderImage(imagePath, thumbnailPath string) (int, int, error) {
	img, err := imaging.Open(imagePath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open image: %w", err)
	}

	thumbnail := imaging.Fit(img, g.MaxWidth, g.MaxHeight, imaging.Lanczos)

	if err := imaging.Save(thumbnail, thumbnailPath, imaging.JPEGQuality(g.Quality)); err != nil {
		return 0, 0, fmt.Errorf("failed to save thumbnail: %w", err)
	}

	bounds := thumbnail.Bounds()
	return bounds.Dx(), bounds.Dy(), nil
}

// renderVideoFrame extracts one frame from a video file using ffmpeg and
// resizes it into a JPEG thumbnail.
func (g *Generator) renderVideoFrame(videoPath, thumbnailPath string) (int, int, error) {
	if g.VideoMethod != "ffmpeg" {
		return 0, 0, fmt.Errorf("video thumbnails disabled (method %q)", g.VideoMethod)
	}
	if g.FFmpegPath == "" {
		return 0, 0, fmt.Errorf("ffmpeg not found, cannot generate video thumbnail")
	}

	cmd := exec.Command(
		g.FFmpegPath,
		"-ss", "00:00:01",
		"-i", videoPath,
		"-vframes", "1",
		"-vf", fmt.Sprintf("scale='min(%d,iw)':min'(%d,ih)':force_original_aspect_ratio=decrease", g.MaxWidth, g.MaxHeight),
		"-q:v", "2",
		"-y",
		thumbnailPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return 0, 0, fmt.Errorf("ffmpeg failed: %w, output: %s", err, string(output))
	}

	img, err := imaging.Open(thumbnailPath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open generated thumbnail: %w", err)
	}

	bounds := img.Bounds()
	return bounds.Dx(), bounds.Dy(), nil
}

// validateURL rejects URLs that could reach local or private addresses.
func validateURL(urlStr string) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (only http and https allowed)", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("URL must have a hostname")
	}

	hostname := strings.ToLower(parsedURL.Hostname())

	localAddresses := []string{
		"localhost",
		"127.0.0.1",
		"0.0.0.0",
		"[::1]",
		"::1",
	}
	for _, local := range localAddresses {
		if hostname == local {
			return fmt.Errorf("access to localhost is not allowed")
		}
	}

	privateRanges := []string{
		"10.",
		"172.16.", "172.17.", "172.18.", "172.19.",
		"172.20.", "172.21.", "172.22.", "172.23.",
		"172.24.", "172.25.", "172.26.", "172.27.",
		"172.28.", "172.29.", "172.30.", "172.31.",
		"192.168.",
		"169.254.",
		"fc00:",
		"fd",
	}
	for _, privateRange := range privateRanges {
		if strings.HasPrefix(hostname, privateRange) {
			return fmt.Errorf("access to private IP ranges is not allowed")
		}
	}

	return nil
}
