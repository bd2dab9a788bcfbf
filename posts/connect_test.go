package posts

import (
	"context"
	"testing"

	"crumb/apperr"
	"crumb/db"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestChainInvalidationKeys(t *testing.T) {
	got := chainInvalidationKeys("remake-1", "orig-1")
	if len(got) != 2 || got[0] != "chain:remake-1" || got[1] != "chain:orig-1" {
		t.Fatalf("remake should invalidate its original's chain too, got %v", got)
	}
	got = chainInvalidationKeys("orig-1", "")
	if len(got) != 1 || got[0] != "chain:orig-1" {
		t.Fatalf("original should invalidate only itself, got %v", got)
	}
}

func TestConnectedPostsChain(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("original first, connection order preserved", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "crumbdb.posts", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: "orig"},
				{Key: "title", Value: "Country Loaf"},
				{Key: "isOriginalRecipe", Value: true},
				{Key: "connectedPosts", Value: bson.A{"b", "c"}},
			}),
			mtest.CreateCursorResponse(0, "crumbdb.posts", mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "c"}, {Key: "originalRecipeId", Value: "orig"}},
				bson.D{{Key: "_id", Value: "b"}, {Key: "originalRecipeId", Value: "orig"}},
			),
		)

		h := &Handler{DB: db.New(mt.DB)}
		chain, err := h.connectedPosts(context.Background(), "orig")
		if err != nil {
			t.Fatalf("connectedPosts: %v", err)
		}
		want := []string{"orig", "b", "c"}
		if len(chain) != len(want) {
			t.Fatalf("chain length = %d, want %d", len(chain), len(want))
		}
		for i, p := range chain {
			if p.ID != want[i] {
				t.Errorf("position %d: got %q, want %q", i, p.ID, want[i])
			}
		}
	})

	mt.Run("unresolvable remakes are filtered", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "crumbdb.posts", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: "orig"},
				{Key: "connectedPosts", Value: bson.A{"gone", "b"}},
			}),
			mtest.CreateCursorResponse(0, "crumbdb.posts", mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "b"}},
			),
		)

		h := &Handler{DB: db.New(mt.DB)}
		chain, err := h.connectedPosts(context.Background(), "orig")
		if err != nil {
			t.Fatalf("connectedPosts: %v", err)
		}
		if len(chain) != 2 || chain[0].ID != "orig" || chain[1].ID != "b" {
			t.Fatalf("unexpected chain: %v", chain)
		}
	})

	mt.Run("missing original is not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "crumbdb.posts", mtest.FirstBatch))

		h := &Handler{DB: db.New(mt.DB)}
		if _, err := h.connectedPosts(context.Background(), "nope"); !apperr.Is(err, apperr.NotFound) {
			t.Fatalf("expected not-found, got %v", err)
		}
	})

	mt.Run("no remakes yields only the original", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "crumbdb.posts", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "orig"},
			{Key: "connectedPosts", Value: bson.A{}},
		}))

		h := &Handler{DB: db.New(mt.DB)}
		chain, err := h.connectedPosts(context.Background(), "orig")
		if err != nil {
			t.Fatalf("connectedPosts: %v", err)
		}
		if len(chain) != 1 || chain[0].ID != "orig" {
			t.Fatalf("unexpected chain: %v", chain)
		}
	})
}
