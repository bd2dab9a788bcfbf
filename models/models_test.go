package models

import "testing"

func TestLikeKey(t *testing.T) {
	if got := LikeKey("post-1", "user-2"); got != "post-1_user-2" {
		t.Fatalf("LikeKey = %q", got)
	}
}

func TestValidDifficulty(t *testing.T) {
	for _, d := range []string{"easy", "medium", "hard", "expert"} {
		if !ValidDifficulty(d) {
			t.Errorf("%q should be valid", d)
		}
	}
	for _, d := range []string{"", "Easy", "impossible"} {
		if ValidDifficulty(d) {
			t.Errorf("%q should be invalid", d)
		}
	}
}
