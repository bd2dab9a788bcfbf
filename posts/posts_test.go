package posts

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"reflect"
	"testing"

	"crumb/apperr"
	"crumb/models"
)

func TestOrderByIDs(t *testing.T) {
	posts := []models.Post{{ID: "c"}, {ID: "a"}, {ID: "b"}}
	ids := []string{"a", "b", "missing", "a", "orig", "c"}

	got := OrderByIDs(posts, ids, "orig")

	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %d posts, want %d", len(got), len(want))
	}
	for i, p := range got {
		if p.ID != want[i] {
			t.Errorf("position %d: got %q, want %q", i, p.ID, want[i])
		}
	}
}

func TestOrderByIDsEmpty(t *testing.T) {
	if got := OrderByIDs(nil, nil, "x"); len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV(" flour , water ,, salt ")
	want := []string{"flour", "water", "salt"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("splitCSV = %v, want %v", got, want)
	}
}

func TestExtOf(t *testing.T) {
	cases := map[string]string{
		"loaf.PNG":   "png",
		"crumb.jpeg": "jpg",
		"shot.jpg":   "jpg",
		"noext":      "jpg",
	}
	for name, want := range cases {
		if got := extOf(name); got != want {
			t.Errorf("extOf(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestPostMetaValidate(t *testing.T) {
	if err := (PostMeta{Title: "Sourdough", Difficulty: "hard"}).validate(1); err != nil {
		t.Fatalf("valid meta rejected: %v", err)
	}
	if err := (PostMeta{Difficulty: "hard"}).validate(1); err == nil {
		t.Fatal("missing title accepted")
	}
	if err := (PostMeta{Title: "x", Difficulty: "trivial"}).validate(1); err == nil {
		t.Fatal("bad difficulty accepted")
	}
}

func TestPostMetaValidateRequiresImage(t *testing.T) {
	err := (PostMeta{Title: "Sourdough", Difficulty: "hard"}).validate(0)
	if !apperr.Is(err, apperr.Upload) {
		t.Fatalf("expected upload error for zero images, got %v", err)
	}
}

func TestParseCreateRequestJSON(t *testing.T) {
	img := base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8, 0xFF})
	body, _ := json.Marshal(map[string]interface{}{
		"title":           "Ciabatta",
		"description":     "very wet dough",
		"difficulty":      "medium",
		"ingredients":     []string{"flour", "water", "yeast"},
		"preparationTime": 30,
		"cookingTime":     25,
		"location":        map[string]interface{}{"latitude": 45.1, "longitude": 9.2, "city": "Milan"},
		"images":          []string{img},
	})

	r := httptest.NewRequest("POST", "/api/v1/posts", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	meta, images, err := parseCreateRequest(r)
	if err != nil {
		t.Fatalf("parseCreateRequest: %v", err)
	}
	if meta.Title != "Ciabatta" || meta.Difficulty != "medium" {
		t.Fatalf("meta not parsed: %+v", meta)
	}
	if meta.Location == nil || meta.Location.City != "Milan" {
		t.Fatalf("location not parsed: %+v", meta.Location)
	}
	if len(images) != 1 || images[0].ext != "jpg" {
		t.Fatalf("images not parsed: %d", len(images))
	}
}

func TestParseCreateRequestBadImage(t *testing.T) {
	body := []byte(`{"title":"x","difficulty":"easy","images":["%%%not-base64%%%"]}`)
	r := httptest.NewRequest("POST", "/api/v1/posts", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	if _, _, err := parseCreateRequest(r); err == nil {
		t.Fatal("expected error for undecodable image payload")
	}
}
