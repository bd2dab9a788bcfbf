package profile

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"crumb/apperr"
	"crumb/db"
	"crumb/models"
	"crumb/notify"
	"crumb/storage"
	"crumb/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type Handler struct {
	DB    *db.Database
	Store *storage.Store
	Hub   *notify.Hub
}

func NewHandler(database *db.Database, store *storage.Store, hub *notify.Hub) *Handler {
	return &Handler{DB: database, Store: store, Hub: hub}
}

func (h *Handler) loadUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := h.DB.Users.FindOne(ctx, filter).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "failed to load user", err)
	}
	return &user, nil
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromContext(r.Context())
	user, err := h.loadUser(r.Context(), bson.M{"_id": userID})
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, user)
}

func (h *Handler) GetUserProfile(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := h.loadUser(r.Context(), bson.M{"username": ps.ByName("username")})
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, user)
}

// EditProfile updates bio and username. The author snapshot embedded in
// existing posts is deliberately left alone.
func (h *Handler) EditProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromContext(r.Context())

	var req struct {
		Username *string `json:"username"`
		Bio      *string `json:"bio"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	update := bson.M{}
	if req.Username != nil && *req.Username != "" {
		update["username"] = *req.Username
	}
	if req.Bio != nil {
		update["bio"] = *req.Bio
	}
	if len(update) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	_, err := h.DB.Users.UpdateOne(r.Context(), bson.M{"_id": userID}, bson.M{"$set": update})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

func (h *Handler) EditProfilePic(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromContext(r.Context())

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid form")
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing avatar file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Error reading file")
		return
	}
	ext := extFromFilename(header.Filename)

	url, err := h.Store.SaveProfilePicture(r.Context(), userID, data, ext)
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}

	_, err = h.DB.Users.UpdateOne(r.Context(), bson.M{"_id": userID},
		bson.M{"$set": bson.M{"photoURL": url}})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "photoURL": url})
}

func extFromFilename(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			ext := name[i+1:]
			if ext == "jpeg" {
				return "jpg"
			}
			return ext
		}
	}
	return "jpg"
}

// Follow adds the mirrored edge in one transaction: target joins the
// caller's following set, caller joins the target's followers set.
// $addToSet keeps repeated calls harmless.
func (h *Handler) Follow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	currentUserID := utils.GetUserIDFromContext(r.Context())
	targetUserID := ps.ByName("id")

	if err := h.follow(r.Context(), currentUserID, targetUserID); err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	h.Hub.Emit(targetUserID, notify.Event{
		Type:      "follow",
		ActorID:   currentUserID,
		ActorName: utils.GetUsernameFromContext(r.Context()),
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

func (h *Handler) follow(ctx context.Context, currentUserID, targetUserID string) error {
	if currentUserID == targetUserID {
		return apperr.New(apperr.Auth, "cannot follow yourself")
	}
	if targetUserID == "" {
		return apperr.New(apperr.NotFound, "user not found")
	}
	err := h.DB.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		res, err := h.DB.Users.UpdateOne(sc, bson.M{"_id": targetUserID},
			bson.M{"$addToSet": bson.M{"followers": currentUserID}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return apperr.New(apperr.NotFound, "user not found")
		}
		_, err = h.DB.Users.UpdateOne(sc, bson.M{"_id": currentUserID},
			bson.M{"$addToSet": bson.M{"following": targetUserID}})
		return err
	})
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return err
		}
		return apperr.Wrap(apperr.Persistence, "failed to follow user", err)
	}
	return nil
}

func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	currentUserID := utils.GetUserIDFromContext(r.Context())
	targetUserID := ps.ByName("id")

	if err := h.unfollow(r.Context(), currentUserID, targetUserID); err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

func (h *Handler) unfollow(ctx context.Context, currentUserID, targetUserID string) error {
	if currentUserID == targetUserID {
		return apperr.New(apperr.Auth, "cannot unfollow yourself")
	}
	err := h.DB.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := h.DB.Users.UpdateOne(sc, bson.M{"_id": targetUserID},
			bson.M{"$pull": bson.M{"followers": currentUserID}}); err != nil {
			return err
		}
		_, err := h.DB.Users.UpdateOne(sc, bson.M{"_id": currentUserID},
			bson.M{"$pull": bson.M{"following": targetUserID}})
		return err
	})
	if err != nil {
		return apperr.Wrap(apperr.Persistence, "failed to unfollow user", err)
	}
	return nil
}

func (h *Handler) DoesFollow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	currentUserID := utils.GetUserIDFromContext(r.Context())
	targetUserID := ps.ByName("id")

	count, err := h.DB.Users.CountDocuments(r.Context(),
		bson.M{"_id": currentUserID, "following": targetUserID})
	// Lookup failures read as "not following" rather than erroring out.
	follows := err == nil && count > 0
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"isFollowing": follows})
}

func (h *Handler) GetFollowers(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.respondUserList(w, r, ps.ByName("id"), "followers")
}

func (h *Handler) GetFollowing(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.respondUserList(w, r, ps.ByName("id"), "following")
}

func (h *Handler) respondUserList(w http.ResponseWriter, r *http.Request, userID, field string) {
	user, err := h.loadUser(r.Context(), bson.M{"_id": userID})
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}

	ids := user.Followers
	if field == "following" {
		ids = user.Following
	}
	if len(ids) == 0 {
		utils.RespondWithJSON(w, http.StatusOK, []models.User{})
		return
	}

	cursor, err := h.DB.Users.Find(r.Context(), bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	defer cursor.Close(r.Context())

	var users []models.User
	if err := cursor.All(r.Context(), &users); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode users")
		return
	}
	if users == nil {
		users = []models.User{}
	}
	utils.RespondWithJSON(w, http.StatusOK, users)
}
