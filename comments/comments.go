package comments

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"time"

	"crumb/apperr"
	"crumb/db"
	"crumb/models"
	"crumb/notify"
	"crumb/utils"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Handler struct {
	DB  *db.Database
	Hub *notify.Hub
}

func NewHandler(database *db.Database, hub *notify.Hub) *Handler {
	return &Handler{DB: database, Hub: hub}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromContext(r.Context())
	postID := ps.ByName("postid")

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Comment text is required")
		return
	}

	comment, authorID, err := h.add(r.Context(), postID, userID, req.Text)
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	h.Hub.Emit(authorID, notify.Event{
		Type:      "comment",
		ActorID:   userID,
		ActorName: comment.Username,
		PostID:    postID,
	})
	utils.RespondWithJSON(w, http.StatusCreated, comment)
}

func (h *Handler) add(ctx context.Context, postID, userID, text string) (*models.Comment, string, error) {
	var commenter models.User
	if err := h.DB.Users.FindOne(ctx, bson.M{"_id": userID}).Decode(&commenter); err != nil {
		return nil, "", apperr.Wrap(apperr.Persistence, "failed to load commenter", err)
	}

	// An absent avatar is stored as an explicit null, not an omitted field.
	var photo *string
	if commenter.PhotoURL != "" {
		photo = &commenter.PhotoURL
	}

	comment := &models.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		UserID:    userID,
		Username:  commenter.Username,
		UserPhoto: photo,
		Text:      text,
		CreatedAt: time.Now().UnixMilli(),
	}
	if _, err := h.DB.Comments.InsertOne(ctx, comment); err != nil {
		return nil, "", apperr.Wrap(apperr.Persistence, "failed to create comment", err)
	}

	// The counter bump is atomic. A post deleted under our feet is
	// logged and tolerated; the comment itself stays.
	var authorID string
	res := h.DB.Posts.FindOneAndUpdate(ctx, bson.M{"_id": postID},
		bson.M{"$inc": bson.M{"comments": 1}},
		options.FindOneAndUpdate().SetProjection(bson.M{"userId": 1}))
	var post struct {
		UserID string `bson:"userId"`
	}
	if err := res.Decode(&post); err != nil {
		log.Printf("comments: post %s missing while bumping counter: %v", postID, err)
	} else {
		authorID = post.UserID
	}
	return comment, authorID, nil
}

// GetForPost returns a post's comments newest first. The ordered query
// runs first; if the backend refuses it, an unordered equality query
// plus a client-side sort produces the identical ordering.
func (h *Handler) GetForPost(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	list, err := h.forPost(r.Context(), ps.ByName("postid"))
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) forPost(ctx context.Context, postID string) ([]models.Comment, error) {
	filter := bson.M{"postId": postID}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := h.DB.Comments.Find(ctx, filter, opts)
	if err == nil {
		var list []models.Comment
		if err := cursor.All(ctx, &list); err == nil {
			if list == nil {
				list = []models.Comment{}
			}
			return list, nil
		}
		cursor.Close(ctx)
	}

	// Fallback path: plain equality query, sorted here instead.
	cursor, err = h.DB.Comments.Find(ctx, filter)
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "failed to fetch comments", err)
	}
	defer cursor.Close(ctx)

	var list []models.Comment
	if err := cursor.All(ctx, &list); err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "failed to decode comments", err)
	}
	return SortNewestFirst(list), nil
}

// SortNewestFirst orders comments by createdAt descending, matching
// what the ordered query path returns.
func SortNewestFirst(list []models.Comment) []models.Comment {
	if list == nil {
		return []models.Comment{}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt > list[j].CreatedAt
	})
	return list
}

// Delete removes the caller's own comment and walks the counter back.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromContext(r.Context())
	postID := ps.ByName("postid")
	commentID := ps.ByName("commentid")

	err := h.DB.WithTransaction(r.Context(), func(sc mongo.SessionContext) error {
		res, err := h.DB.Comments.DeleteOne(sc,
			bson.M{"_id": commentID, "postId": postID, "userId": userID})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return apperr.New(apperr.NotFound, "comment not found")
		}
		_, err = h.DB.Posts.UpdateOne(sc, bson.M{"_id": postID},
			bson.M{"$inc": bson.M{"comments": -1}})
		return err
	})
	if err != nil {
		if !apperr.Is(err, apperr.NotFound) {
			err = apperr.Wrap(apperr.Persistence, "failed to delete comment", err)
		}
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}
