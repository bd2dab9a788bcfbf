package storage

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSniffExtension(t *testing.T) {
	cases := []struct {
		payload string
		want    string
	}{
		{"/9j/4AAQSkZJRg", "jpg"},
		{"iVBORw0KGgoAAAA", "png"},
		{"R0lGODlhAQABA", "gif"},
		{"UklGRh4AAABXRUJQ", "webp"},
		{"AAAAAAAA", "jpg"},
		{"", "jpg"},
	}
	for _, c := range cases {
		if got := SniffExtension(c.payload); got != c.want {
			t.Errorf("SniffExtension(%q) = %q, want %q", c.payload, got, c.want)
		}
	}
}

func TestDecodeImageBareBase64(t *testing.T) {
	raw := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}
	payload := base64.StdEncoding.EncodeToString(raw)

	data, ext, err := DecodeImage(payload)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	if string(data) != string(raw) {
		t.Fatalf("decoded bytes differ")
	}
	// JPEG magic bytes base64-encode to a "/9j/" prefix
	if ext != "jpg" {
		t.Fatalf("ext = %q, want jpg", ext)
	}
}

func TestDecodeImageDataURL(t *testing.T) {
	raw := []byte("fake png bytes")
	input := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)

	data, ext, err := DecodeImage(input)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	if string(data) != string(raw) {
		t.Fatalf("decoded bytes differ")
	}
	if ext != "png" {
		t.Fatalf("ext = %q, want png", ext)
	}
}

func TestDecodeImageDataURLJpegAlias(t *testing.T) {
	input := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte{1})
	_, ext, err := DecodeImage(input)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	if ext != "jpg" {
		t.Fatalf("ext = %q, want jpg", ext)
	}
}

func TestDecodeImageMalformed(t *testing.T) {
	if _, _, err := DecodeImage("data:image/png"); err == nil {
		t.Fatal("expected error for data URL without comma")
	}
	if _, _, err := DecodeImage("not base64 at all!!!"); err == nil {
		t.Fatal("expected error for invalid base64")
	}
}

func TestSavePostImagePathAndURL(t *testing.T) {
	root := t.TempDir()
	store := New(root, "http://localhost:8080/static/")

	url, err := store.SavePostImage(context.Background(), []byte("image-bytes"), "jpg", 1700000000000, 2)
	if err != nil {
		t.Fatalf("SavePostImage: %v", err)
	}
	if !strings.HasPrefix(url, "http://localhost:8080/static/posts/1700000000000_2_") {
		t.Fatalf("unexpected url %q", url)
	}

	rel := strings.TrimPrefix(url, "http://localhost:8080/static/")
	name := filepath.Base(rel)
	parts := strings.Split(name, "_")
	if len(parts) != 3 || len(parts[2]) != 9 {
		t.Fatalf("blob name %q does not match timestamp_index_random9", name)
	}

	data, err := os.ReadFile(filepath.Join(root, "posts", name))
	if err != nil {
		t.Fatalf("blob not written: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Fatalf("blob content differs")
	}
}

func TestSaveProfilePicturePath(t *testing.T) {
	root := t.TempDir()
	store := New(root, "http://cdn")

	url, err := store.SaveProfilePicture(context.Background(), "user-1", []byte("avatar"), "png")
	if err != nil {
		t.Fatalf("SaveProfilePicture: %v", err)
	}
	if !strings.HasPrefix(url, "http://cdn/profile_pictures/profile_user-1_") {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestDownscalePassthroughOnUndecodable(t *testing.T) {
	data := []byte("definitely not an image")
	if got := downscale(data, "jpg"); string(got) != string(data) {
		t.Fatal("undecodable payload should pass through unchanged")
	}
	if got := downscale(data, "webp"); string(got) != string(data) {
		t.Fatal("webp should pass through unchanged")
	}
}
