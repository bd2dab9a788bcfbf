package saves

import (
	"context"
	"net/http"
	"sort"

	"crumb/apperr"
	"crumb/db"
	"crumb/models"
	"crumb/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// savedBatchSize caps each $in resolution query, mirroring the
// 10-document ceiling of the original backend's id queries.
const savedBatchSize = 10

type Handler struct {
	DB *db.Database
}

func NewHandler(database *db.Database) *Handler {
	return &Handler{DB: database}
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromContext(r.Context())
	postID := ps.ByName("id")

	res, err := h.DB.Users.UpdateOne(r.Context(), bson.M{"_id": userID},
		bson.M{"$addToSet": bson.M{"savedPosts": postID}})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to save post")
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

func (h *Handler) Unsave(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromContext(r.Context())
	postID := ps.ByName("id")

	_, err := h.DB.Users.UpdateOne(r.Context(), bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"savedPosts": postID}})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to unsave post")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

// HasSaved reads as false on lookup failure, same as the rise check.
func (h *Handler) HasSaved(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromContext(r.Context())
	postID := ps.ByName("id")

	count, err := h.DB.Users.CountDocuments(r.Context(),
		bson.M{"_id": userID, "savedPosts": postID})
	saved := err == nil && count > 0
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"saved": saved})
}

func (h *Handler) GetSaved(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromContext(r.Context())

	list, err := h.savedPosts(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) savedPosts(ctx context.Context, userID string) ([]models.Post, error) {
	var user models.User
	err := h.DB.Users.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "failed to load user", err)
	}

	posts := []models.Post{}
	for _, batch := range Chunk(user.SavedPosts, savedBatchSize) {
		cursor, err := h.DB.Posts.Find(ctx, bson.M{"_id": bson.M{"$in": batch}})
		if err != nil {
			return nil, apperr.Wrap(apperr.Persistence, "failed to fetch saved posts", err)
		}
		var part []models.Post
		if err := cursor.All(ctx, &part); err != nil {
			return nil, apperr.Wrap(apperr.Persistence, "failed to decode saved posts", err)
		}
		posts = append(posts, part...)
	}

	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt > posts[j].CreatedAt
	})
	return posts, nil
}

// Chunk splits ids into consecutive slices of at most size elements.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 || len(ids) == 0 {
		return nil
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
