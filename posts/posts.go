package posts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"crumb/apperr"
	"crumb/db"
	"crumb/models"
	"crumb/notify"
	"crumb/rdx"
	"crumb/storage"
	"crumb/utils"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Handler struct {
	DB    *db.Database
	Store *storage.Store
	Cache *rdx.Cache
	Hub   *notify.Hub
}

func NewHandler(database *db.Database, store *storage.Store, cache *rdx.Cache, hub *notify.Hub) *Handler {
	return &Handler{DB: database, Store: store, Cache: cache, Hub: hub}
}

// PostMeta carries the caller-supplied fields of a new bake post.
type PostMeta struct {
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Difficulty      string           `json:"difficulty"`
	Ingredients     []string         `json:"ingredients,omitempty"`
	PreparationTime int              `json:"preparationTime,omitempty"`
	CookingTime     int              `json:"cookingTime,omitempty"`
	Location        *models.Location `json:"location,omitempty"`
}

type imageInput struct {
	data []byte
	ext  string
}

// parseCreateRequest accepts either JSON (images as data URLs or bare
// base64 strings) or multipart form data (images as file parts).
func parseCreateRequest(r *http.Request) (PostMeta, []imageInput, error) {
	var meta PostMeta
	var images []imageInput

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return meta, nil, apperr.New(apperr.Upload, "invalid multipart form")
		}
		meta.Title = r.FormValue("title")
		meta.Description = r.FormValue("description")
		meta.Difficulty = r.FormValue("difficulty")
		if v := r.FormValue("ingredients"); v != "" {
			meta.Ingredients = splitCSV(v)
		}
		meta.PreparationTime, _ = strconv.Atoi(r.FormValue("preparationTime"))
		meta.CookingTime, _ = strconv.Atoi(r.FormValue("cookingTime"))
		if v := r.FormValue("location"); v != "" {
			var loc models.Location
			if err := json.Unmarshal([]byte(v), &loc); err == nil {
				meta.Location = &loc
			}
		}
		for _, fh := range r.MultipartForm.File["images"] {
			f, err := fh.Open()
			if err != nil {
				return meta, nil, apperr.Wrap(apperr.Upload, "error reading image", err)
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return meta, nil, apperr.Wrap(apperr.Upload, "error reading image", err)
			}
			images = append(images, imageInput{data: data, ext: extOf(fh.Filename)})
		}
		return meta, images, nil
	}

	var req struct {
		PostMeta
		Images []string `json:"images"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return meta, nil, apperr.New(apperr.Upload, "invalid request body")
	}
	meta = req.PostMeta
	for _, s := range req.Images {
		data, ext, err := storage.DecodeImage(s)
		if err != nil {
			return meta, nil, err
		}
		images = append(images, imageInput{data: data, ext: ext})
	}
	return meta, images, nil
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		ext := strings.ToLower(name[i+1:])
		if ext == "jpeg" {
			return "jpg"
		}
		return ext
	}
	return "jpg"
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (m PostMeta) validate(imageCount int) error {
	if m.Title == "" {
		return apperr.New(apperr.Upload, "title is required")
	}
	if !models.ValidDifficulty(m.Difficulty) {
		return apperr.New(apperr.Upload, "invalid difficulty")
	}
	if imageCount == 0 {
		return apperr.New(apperr.Upload, "at least one image is required")
	}
	return nil
}

// uploadImages runs the uploads as a sequential loop. A failure aborts
// the whole create; blobs already written stay behind as orphans.
func (h *Handler) uploadImages(ctx context.Context, images []imageInput) ([]string, error) {
	ts := time.Now().UnixMilli()
	urls := make([]string, 0, len(images))
	for i, img := range images {
		url, err := h.Store.SavePostImage(ctx, img.data, img.ext, ts, i)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (h *Handler) newPost(ctx context.Context, meta PostMeta, urls []string) (*models.Post, error) {
	userID := utils.GetUserIDFromContext(ctx)
	var author models.User
	if err := h.DB.Users.FindOne(ctx, bson.M{"_id": userID}).Decode(&author); err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "failed to load author", err)
	}

	post := &models.Post{
		ID:               uuid.NewString(),
		UserID:           author.ID,
		Username:         author.Username,
		UserPhoto:        author.PhotoURL,
		Title:            meta.Title,
		Description:      meta.Description,
		PhotoURLs:        urls,
		Difficulty:       meta.Difficulty,
		Ingredients:      meta.Ingredients,
		PreparationTime:  meta.PreparationTime,
		CookingTime:      meta.CookingTime,
		Likes:            0,
		Comments:         0,
		CreatedAt:        time.Now().UnixMilli(),
		Location:         meta.Location,
		IsOriginalRecipe: true,
		ConnectedPosts:   []string{},
	}
	if len(urls) > 0 {
		post.PhotoURL = urls[0]
	}
	return post, nil
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
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
	if _, err := h.DB.Posts.InsertOne(r.Context(), post); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create post")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, post)
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var post models.Post
	err := h.DB.Posts.FindOne(r.Context(), bson.M{"_id": ps.ByName("id")}).Decode(&post)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Post not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load post")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, post)
}

// UpdatePost lets the author edit post fields. The photo list and the
// recipe-connection fields are not editable here.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromContext(r.Context())
	postID := ps.ByName("id")

	var req PostMeta
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	update := bson.M{}
	if req.Title != "" {
		update["title"] = req.Title
	}
	if req.Description != "" {
		update["description"] = req.Description
	}
	if req.Difficulty != "" {
		if !models.ValidDifficulty(req.Difficulty) {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid difficulty")
			return
		}
		update["difficulty"] = req.Difficulty
	}
	if req.Ingredients != nil {
		update["ingredients"] = req.Ingredients
	}
	if req.PreparationTime > 0 {
		update["preparationTime"] = req.PreparationTime
	}
	if req.CookingTime > 0 {
		update["cookingTime"] = req.CookingTime
	}
	if req.Location != nil {
		update["location"] = req.Location
	}
	if len(update) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	var prev struct {
		OriginalRecipeID string `bson:"originalRecipeId"`
	}
	err := h.DB.Posts.FindOneAndUpdate(r.Context(),
		bson.M{"_id": postID, "userId": userID}, bson.M{"$set": update},
		options.FindOneAndUpdate().SetProjection(bson.M{"originalRecipeId": 1})).Decode(&prev)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Post not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update post")
		return
	}
	h.Cache.Invalidate(r.Context(), chainInvalidationKeys(postID, prev.OriginalRecipeID)...)
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

// DeletePost removes the post and its comments and rise edges. Remakes
// referencing a deleted original keep their originalRecipeId; their
// chain reads simply stop resolving the missing document.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromContext(r.Context())
	postID := ps.ByName("id")

	var deleted struct {
		OriginalRecipeID string `bson:"originalRecipeId"`
	}
	err := h.DB.WithTransaction(r.Context(), func(sc mongo.SessionContext) error {
		err := h.DB.Posts.FindOneAndDelete(sc, bson.M{"_id": postID, "userId": userID},
			options.FindOneAndDelete().SetProjection(bson.M{"originalRecipeId": 1})).Decode(&deleted)
		if err == mongo.ErrNoDocuments {
			return apperr.New(apperr.NotFound, "post not found")
		}
		if err != nil {
			return err
		}
		if _, err := h.DB.Comments.DeleteMany(sc, bson.M{"postId": postID}); err != nil {
			return err
		}
		_, err = h.DB.Likes.DeleteMany(sc, bson.M{"postId": postID})
		return err
	})
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	h.Cache.Invalidate(r.Context(), chainInvalidationKeys(postID, deleted.OriginalRecipeID)...)
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

// Feed returns posts by the given authors, newest first. Without a
// users parameter it falls back to the caller's following list.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var authorIDs []string
	if users := r.URL.Query().Get("users"); users != "" {
		authorIDs = splitCSV(users)
	} else {
		userID := utils.GetUserIDFromContext(r.Context())
		var me models.User
		if err := h.DB.Users.FindOne(r.Context(), bson.M{"_id": userID}).Decode(&me); err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load profile")
			return
		}
		authorIDs = me.Following
	}
	if len(authorIDs) == 0 {
		utils.RespondWithJSON(w, http.StatusOK, []models.Post{})
		return
	}

	limit, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	cursor, err := h.DB.Posts.Find(r.Context(),
		bson.M{"userId": bson.M{"$in": authorIDs}}, db.OptionsFindLatest(limit))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch feed")
		return
	}
	defer cursor.Close(r.Context())

	var feed []models.Post
	if err := cursor.All(r.Context(), &feed); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode feed")
		return
	}
	if feed == nil {
		feed = []models.Post{}
	}
	utils.RespondWithJSON(w, http.StatusOK, feed)
}

// GetUserPosts lists one author's bakes, newest first.
func (h *Handler) GetUserPosts(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	cursor, err := h.DB.Posts.Find(r.Context(),
		bson.M{"userId": ps.ByName("id")}, db.OptionsFindLatest(100))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch posts")
		return
	}
	defer cursor.Close(r.Context())

	var list []models.Post
	if err := cursor.All(r.Context(), &list); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode posts")
		return
	}
	if list == nil {
		list = []models.Post{}
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}
