package posts

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"crumb/apperr"
	"crumb/models"
	"crumb/notify"
	"crumb/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Recipe connections: a remake post points at its original through
// originalRecipeId, and the original lists every remake id in
// connectedPosts. Both sides are written in one transaction.

const chainCacheTTL = 30 * time.Second

func chainCacheKey(originalID string) string {
	return "chain:" + originalID
}

// chainInvalidationKeys lists every cached chain an edit or delete of
// the given post can leave stale: its own and, when the post is a
// remake, the original's.
func chainInvalidationKeys(postID, originalRecipeID string) []string {
	keys := []string{chainCacheKey(postID)}
	if originalRecipeID != "" {
		keys = append(keys, chainCacheKey(originalRecipeID))
	}
	return keys
}

// connect links an already existing post to its original recipe.
func (h *Handler) connect(ctx context.Context, originalRecipeID, newPostID string) error {
	if originalRecipeID == newPostID {
		return apperr.New(apperr.Upload, "post cannot be its own original")
	}
	err := h.DB.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		res, err := h.DB.Posts.UpdateOne(sc, bson.M{"_id": originalRecipeID},
			bson.M{"$addToSet": bson.M{"connectedPosts": newPostID}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return apperr.New(apperr.NotFound, "original recipe not found")
		}
		res, err = h.DB.Posts.UpdateOne(sc, bson.M{"_id": newPostID},
			bson.M{"$set": bson.M{
				"originalRecipeId": originalRecipeID,
				"isOriginalRecipe": false,
			}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return apperr.New(apperr.NotFound, "post not found")
		}
		return nil
	})
	if err != nil {
		if apperr.Is(err, apperr.NotFound) || apperr.Is(err, apperr.Upload) {
			return err
		}
		return apperr.Wrap(apperr.Persistence, "failed to connect post to recipe", err)
	}
	h.Cache.Invalidate(ctx, chainCacheKey(originalRecipeID))
	return nil
}

func (h *Handler) ConnectPost(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	newPostID := ps.ByName("id")
	var req struct {
		OriginalRecipeID string `json:"originalRecipeId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OriginalRecipeID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing originalRecipeId")
		return
	}
	if err := h.connect(r.Context(), req.OriginalRecipeID, newPostID); err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

// CreateConnectedPost uploads the images first, then inserts the remake
// and links it into the original's chain inside a single transaction,
// so a remake can never exist unlinked.
func (h *Handler) CreateConnectedPost(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	originalRecipeID := ps.ByName("id")

	meta, images, err := parseCreateRequest(r)
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	if err := meta.validate(len(images)); err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}

	urls, err := h.uploadImages(r.Context(), images)
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}

	post, err := h.newPost(r.Context(), meta, urls)
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	post.OriginalRecipeID = originalRecipeID
	post.IsOriginalRecipe = false

	var original models.Post
	err = h.DB.WithTransaction(r.Context(), func(sc mongo.SessionContext) error {
		if err := h.DB.Posts.FindOne(sc, bson.M{"_id": originalRecipeID}).Decode(&original); err != nil {
			if err == mongo.ErrNoDocuments {
				return apperr.New(apperr.NotFound, "original recipe not found")
			}
			return err
		}
		if _, err := h.DB.Posts.InsertOne(sc, post); err != nil {
			return err
		}
		_, err := h.DB.Posts.UpdateOne(sc, bson.M{"_id": originalRecipeID},
			bson.M{"$addToSet": bson.M{"connectedPosts": post.ID}})
		return err
	})
	if err != nil {
		if !apperr.Is(err, apperr.NotFound) {
			err = apperr.Wrap(apperr.Persistence, "failed to create connected post", err)
		}
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	h.Cache.Invalidate(r.Context(), chainCacheKey(originalRecipeID))

	h.Hub.Emit(original.UserID, notify.Event{
		Type:      "remake",
		ActorID:   post.UserID,
		ActorName: post.Username,
		PostID:    post.ID,
	})

	// Re-read so the response reflects exactly what was committed.
	var created models.Post
	if err := h.DB.Posts.FindOne(r.Context(), bson.M{"_id": post.ID}).Decode(&created); err != nil {
		utils.RespondWithJSON(w, http.StatusCreated, post)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, created)
}

// GetConnectedPosts returns the original first, then every remake that
// still resolves, preserving the connection order.
func (h *Handler) GetConnectedPosts(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	originalID := ps.ByName("id")

	if payload, ok := h.Cache.GetJSON(r.Context(), chainCacheKey(originalID)); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(payload)
		return
	}

	chain, err := h.connectedPosts(r.Context(), originalID)
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}

	if payload, err := json.Marshal(chain); err == nil {
		h.Cache.SetJSON(r.Context(), chainCacheKey(originalID), payload, chainCacheTTL)
	}
	utils.RespondWithJSON(w, http.StatusOK, chain)
}

func (h *Handler) connectedPosts(ctx context.Context, originalID string) ([]models.Post, error) {
	var original models.Post
	err := h.DB.Posts.FindOne(ctx, bson.M{"_id": originalID}).Decode(&original)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound, "original recipe not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "failed to load original recipe", err)
	}

	chain := []models.Post{original}
	if len(original.ConnectedPosts) == 0 {
		return chain, nil
	}

	cursor, err := h.DB.Posts.Find(ctx, bson.M{"_id": bson.M{"$in": original.ConnectedPosts}})
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "failed to load connected posts", err)
	}
	defer cursor.Close(ctx)

	var connected []models.Post
	if err := cursor.All(ctx, &connected); err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "failed to decode connected posts", err)
	}

	return append(chain, OrderByIDs(connected, original.ConnectedPosts, originalID)...), nil
}

// OrderByIDs arranges posts to follow the id order of the connection
// list, dropping ids that did not resolve and any duplicate or
// self-referencing entry.
func OrderByIDs(posts []models.Post, ids []string, excludeID string) []models.Post {
	byID := make(map[string]models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	seen := make(map[string]bool, len(ids))
	ordered := make([]models.Post, 0, len(ids))
	for _, id := range ids {
		if id == excludeID || seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered
}
