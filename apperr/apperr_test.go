package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{New(Auth, "bad credentials"), http.StatusUnauthorized},
		{New(NotFound, "missing"), http.StatusNotFound},
		{New(Upload, "broken image"), http.StatusBadRequest},
		{New(Persistence, "db down"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := Status(c.err); got != c.want {
			t.Errorf("Status(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestIsMatchesThroughWrapping(t *testing.T) {
	base := Wrap(Persistence, "write failed", errors.New("socket closed"))
	wrapped := fmt.Errorf("outer: %w", base)

	if !Is(wrapped, Persistence) {
		t.Fatal("Is should see through fmt.Errorf wrapping")
	}
	if Is(wrapped, Auth) {
		t.Fatal("wrong kind matched")
	}
	if Is(errors.New("plain"), Persistence) {
		t.Fatal("plain error matched a kind")
	}
}

func TestErrorString(t *testing.T) {
	e := Wrap(Upload, "upload failed", errors.New("timeout"))
	if e.Error() != "upload failed: timeout" {
		t.Fatalf("Error() = %q", e.Error())
	}
	if New(Auth, "nope").Error() != "nope" {
		t.Fatal("bare message expected")
	}
	if !errors.Is(e, e) || errors.Unwrap(e) == nil {
		t.Fatal("unwrap chain broken")
	}
}
