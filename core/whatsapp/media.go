package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"complaintbot/core/logger"
)

// maxMediaBytes caps attachment downloads; Cloud API media tops out well
// below this.
const maxMediaBytes = 32 << 20

var mimeExt = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

type mediaMetadata struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	ID       string `json:"id"`
}

// Resolve exchanges an inbound media id for a durable local copy: the
// metadata lookup yields a short-lived download URL, the bytes are stored
// in the uploads directory and the served URL is returned.
func (c *Client) Resolve(ctx context.Context, mediaRef string) (string, error) {
	start := time.Now()

	meta, err := c.fetchMediaMetadata(ctx, mediaRef)
	if err != nil {
		return "", err
	}
	filename := mediaRef + extForMime(meta.MimeType)
	path := filepath.Join(c.uploadsDir, filename)
	if err := c.downloadMedia(ctx, meta.URL, path); err != nil {
		return "", err
	}

	logger.WA.Info("media resolved",
		slog.String("event", "wa.media"),
		slog.String("status", "ok"),
		slog.String("media_ref", mediaRef),
		slog.String("filename", filename),
		slog.Duration("duration", logger.Took(start)),
	)
	return c.publicURL + "/uploads/" + filename, nil
}

func (c *Client) fetchMediaMetadata(ctx context.Context, mediaRef string) (*mediaMetadata, error) {
	endpoint := fmt.Sprintf("%s/%s", c.apiBase, mediaRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: build media request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: media metadata: %s", sanitizeErrorMessage(err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whatsapp: media metadata: http %d", resp.StatusCode)
	}

	var meta mediaMetadata
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&meta); err != nil {
		return nil, fmt.Errorf("whatsapp: decode media metadata: %w", err)
	}
	if meta.URL == "" {
		return nil, fmt.Errorf("whatsapp: media %s has no download url", mediaRef)
	}
	return &meta, nil
}

func (c *Client) downloadMedia(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("whatsapp: build download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: download media: %s", sanitizeErrorMessage(err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("whatsapp: download media: http %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("whatsapp: create uploads dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("whatsapp: create media file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, io.LimitReader(resp.Body, maxMediaBytes)); err != nil {
		os.Remove(path)
		return fmt.Errorf("whatsapp: write media file: %w", err)
	}
	return nil
}

func extForMime(mime string) string {
	if ext, ok := mimeExt[mime]; ok {
		return ext
	}
	return ".bin"
}
