package saves

import (
	"context"
	"testing"

	"crumb/apperr"
	"crumb/db"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestSavedPosts(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("resolved and sorted newest first", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "crumbdb.users", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: "user-1"},
				{Key: "savedPosts", Value: bson.A{"p1", "p2"}},
			}),
			mtest.CreateCursorResponse(0, "crumbdb.posts", mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "p1"}, {Key: "createdAt", Value: int64(100)}},
				bson.D{{Key: "_id", Value: "p2"}, {Key: "createdAt", Value: int64(200)}},
			),
		)

		h := NewHandler(db.New(mt.DB))
		list, err := h.savedPosts(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("savedPosts: %v", err)
		}
		if len(list) != 2 || list[0].ID != "p2" || list[1].ID != "p1" {
			t.Fatalf("unexpected order: %v", list)
		}
	})

	mt.Run("nothing saved", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "crumbdb.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "user-1"},
			{Key: "savedPosts", Value: bson.A{}},
		}))

		h := NewHandler(db.New(mt.DB))
		list, err := h.savedPosts(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("savedPosts: %v", err)
		}
		if list == nil || len(list) != 0 {
			t.Fatalf("expected empty non-nil list, got %v", list)
		}
	})

	mt.Run("unknown user", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "crumbdb.users", mtest.FirstBatch))

		h := NewHandler(db.New(mt.DB))
		if _, err := h.savedPosts(context.Background(), "ghost"); !apperr.Is(err, apperr.NotFound) {
			t.Fatalf("expected not-found, got %v", err)
		}
	})
}
