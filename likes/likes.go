package likes

import (
	"context"
	"errors"
	"net/http"
	"time"

	"crumb/apperr"
	"crumb/db"
	"crumb/models"
	"crumb/notify"
	"crumb/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// A rise is stored twice: as an existence-only edge keyed by
// postId_userId, and as a denormalized counter on the post. Both writes
// share one transaction, and the keyed edge doubles as the idempotency
// guard: inserting it a second time fails, so the counter can never be
// bumped twice for the same user.
type Handler struct {
	DB  *db.Database
	Hub *notify.Hub
}

var errAlreadyLiked = errors.New("already liked")

func NewHandler(database *db.Database, hub *notify.Hub) *Handler {
	return &Handler{DB: database, Hub: hub}
}

func (h *Handler) Like(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromContext(r.Context())
	postID := ps.ByName("id")

	authorID, err := h.like(r.Context(), postID, userID)
	if err != nil {
		if errors.Is(err, errAlreadyLiked) {
			utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "alreadyLiked": true})
			return
		}
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	h.Hub.Emit(authorID, notify.Event{
		Type:      "rise",
		ActorID:   userID,
		ActorName: utils.GetUsernameFromContext(r.Context()),
		PostID:    postID,
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

func (h *Handler) like(ctx context.Context, postID, userID string) (string, error) {
	edge := models.Like{
		ID:        models.LikeKey(postID, userID),
		PostID:    postID,
		UserID:    userID,
		CreatedAt: time.Now().UnixMilli(),
	}

	var authorID string
	err := h.DB.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		var post models.Post
		if err := h.DB.Posts.FindOne(sc, bson.M{"_id": postID}).Decode(&post); err != nil {
			if err == mongo.ErrNoDocuments {
				return apperr.New(apperr.NotFound, "post not found")
			}
			return err
		}
		authorID = post.UserID

		if _, err := h.DB.Likes.InsertOne(sc, edge); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return errAlreadyLiked
			}
			return err
		}
		_, err := h.DB.Posts.UpdateOne(sc, bson.M{"_id": postID},
			bson.M{"$inc": bson.M{"likes": 1}})
		return err
	})
	if err != nil {
		if apperr.Is(err, apperr.NotFound) || errors.Is(err, errAlreadyLiked) {
			return "", err
		}
		return "", apperr.Wrap(apperr.Persistence, "failed to like post", err)
	}
	return authorID, nil
}

func (h *Handler) Unlike(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromContext(r.Context())
	postID := ps.ByName("id")

	if err := h.unlike(r.Context(), postID, userID); err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

func (h *Handler) unlike(ctx context.Context, postID, userID string) error {
	err := h.DB.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		res, err := h.DB.Likes.DeleteOne(sc, bson.M{"_id": models.LikeKey(postID, userID)})
		if err != nil {
			return err
		}
		// No edge means nothing to undo; the counter stays put.
		if res.DeletedCount == 0 {
			return nil
		}
		_, err = h.DB.Posts.UpdateOne(sc, bson.M{"_id": postID},
			bson.M{"$inc": bson.M{"likes": -1}})
		return err
	})
	if err != nil {
		return apperr.Wrap(apperr.Persistence, "failed to unlike post", err)
	}
	return nil
}

// HasLiked answers "did this user rise this post". A failed lookup
// reads as false rather than an error.
func (h *Handler) HasLiked(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromContext(r.Context())
	postID := ps.ByName("id")

	count, err := h.DB.Likes.CountDocuments(r.Context(),
		bson.M{"_id": models.LikeKey(postID, userID)})
	liked := err == nil && count > 0
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"liked": liked})
}
