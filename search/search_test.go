package search

import (
	"strings"
	"testing"

	"crumb/models"
)

func TestMatchUserCaseInsensitive(t *testing.T) {
	u := models.User{Username: "BreadWinner", Email: "sour@dough.example"}
	for _, q := range []string{"breadwinner", "WINNER", "sour@", "dough"} {
		if !MatchUser(u, lower(q)) {
			t.Errorf("query %q should match", q)
		}
	}
	if MatchUser(u, "rye") {
		t.Error("query rye should not match")
	}
}

func TestMatchPostSearchesIngredients(t *testing.T) {
	p := models.Post{
		Title:       "Weekend Boule",
		Description: "High hydration",
		Ingredients: []string{"Rye Flour", "Water", "Salt"},
	}
	for _, q := range []string{"boule", "hydration", "rye flour", "SALT"} {
		if !MatchPost(p, lower(q)) {
			t.Errorf("query %q should match", q)
		}
	}
	if MatchPost(p, "brioche") {
		t.Error("query brioche should not match")
	}
}

func lower(s string) string { return strings.ToLower(s) }

func TestFilterUsersTruncatesToLimit(t *testing.T) {
	window := []models.User{
		{Username: "baker-1"},
		{Username: "baker-2"},
		{Username: "baker-3"},
		{Username: "cook"},
	}
	got := FilterUsers(window, "BAKER", 2)
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].Username != "baker-1" || got[1].Username != "baker-2" {
		t.Fatalf("window order not preserved: %v", got)
	}
}

func TestFilterPostsEmptyResult(t *testing.T) {
	got := FilterPosts([]models.Post{{Title: "Bagels"}}, "croissant", 20)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", got)
	}
}
