package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"crumb/apperr"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// UploadTimeout bounds a single blob write. A stuck disk or mount
// aborts the whole post creation rather than hanging the request.
const UploadTimeout = 60 * time.Second

const maxImageWidth = 1600

// Store writes image blobs under Root and hands back public URLs
// rooted at BaseURL. Paths:
//
//	posts/{timestamp}_{index}_{random9}
//	profile_pictures/profile_{userId}_{timestamp}
type Store struct {
	Root    string
	BaseURL string
}

func New(root, baseURL string) *Store {
	return &Store{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}
}

// SniffExtension guesses the image type of a bare base64 payload from
// its leading characters. Unknown payloads are treated as JPEG.
func SniffExtension(b64 string) string {
	switch {
	case strings.HasPrefix(b64, "/9j/"):
		return "jpg"
	case strings.HasPrefix(b64, "iVBORw0KGgo"):
		return "png"
	case strings.HasPrefix(b64, "R0lGOD"):
		return "gif"
	case strings.HasPrefix(b64, "UklGR"):
		return "webp"
	default:
		return "jpg"
	}
}

// DecodeImage accepts the two string encodings a client may send:
// a data URL ("data:image/png;base64,....") or a bare base64 payload.
// Multipart file bytes skip this and go straight to the save calls.
func DecodeImage(input string) ([]byte, string, error) {
	payload := input
	ext := ""
	if strings.HasPrefix(input, "data:") {
		comma := strings.Index(input, ",")
		if comma < 0 {
			return nil, "", apperr.New(apperr.Upload, "malformed data URL")
		}
		header := input[:comma]
		payload = input[comma+1:]
		if mt := strings.TrimPrefix(header, "data:"); strings.HasPrefix(mt, "image/") {
			ext = strings.ToLower(strings.SplitN(strings.TrimPrefix(mt, "image/"), ";", 2)[0])
			if ext == "jpeg" {
				ext = "jpg"
			}
		}
	}
	if ext == "" {
		ext = SniffExtension(payload)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.Upload, "invalid base64 image payload", err)
	}
	return raw, ext, nil
}

// SavePostImage stores one post image and returns its public URL.
// index keeps multi-image uploads ordered within one timestamp.
func (s *Store) SavePostImage(ctx context.Context, data []byte, ext string, ts int64, index int) (string, error) {
	name := fmt.Sprintf("%d_%d_%s", ts, index, randomSuffix())
	return s.save(ctx, filepath.Join("posts", name), data, ext)
}

func (s *Store) SaveProfilePicture(ctx context.Context, userID string, data []byte, ext string) (string, error) {
	name := fmt.Sprintf("profile_%s_%d", userID, time.Now().UnixMilli())
	data = thumbnail(data, ext)
	return s.save(ctx, filepath.Join("profile_pictures", name), data, ext)
}

func (s *Store) save(ctx context.Context, rel string, data []byte, ext string) (string, error) {
	data = downscale(data, ext)

	ctx, cancel := context.WithTimeout(ctx, UploadTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		path := filepath.Join(s.Root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			done <- err
			return
		}
		done <- os.WriteFile(path, data, 0o644)
	}()

	select {
	case err := <-done:
		if err != nil {
			return "", apperr.Wrap(apperr.Upload, "failed to store image", err)
		}
	case <-ctx.Done():
		return "", apperr.Wrap(apperr.Upload, "image upload timed out", ctx.Err())
	}
	return s.BaseURL + "/" + filepath.ToSlash(rel), nil
}

// downscale caps very large uploads at maxImageWidth. Formats imaging
// cannot re-encode (webp) pass through untouched.
func downscale(data []byte, ext string) []byte {
	format, ok := encodeFormat(ext)
	if !ok {
		return data
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}
	if img.Bounds().Dx() <= maxImageWidth {
		return data
	}
	resized := imaging.Resize(img, maxImageWidth, 0, imaging.Lanczos)
	return encode(resized, format, data)
}

func thumbnail(data []byte, ext string) []byte {
	format, ok := encodeFormat(ext)
	if !ok {
		return data
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}
	thumb := imaging.Thumbnail(img, 400, 400, imaging.Lanczos)
	return encode(thumb, format, data)
}

func encode(img image.Image, format imaging.Format, fallback []byte) []byte {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return fallback
	}
	return buf.Bytes()
}

func encodeFormat(ext string) (imaging.Format, bool) {
	switch ext {
	case "jpg", "jpeg":
		return imaging.JPEG, true
	case "png":
		return imaging.PNG, true
	case "gif":
		return imaging.GIF, true
	}
	return 0, false
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}
