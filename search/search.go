package search

import (
	"net/http"
	"strconv"
	"strings"

	"crumb/db"
	"crumb/models"
	"crumb/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

// The backend offers no case-insensitive partial-text query over these
// fields, so search fetches a bounded window of each collection and
// filters it here. Results are capped by the window, not by relevance
// over the whole collection; that limitation is deliberate.
const (
	userWindow   = 100
	postWindow   = 200
	defaultLimit = 20
)

type Handler struct {
	DB *db.Database
}

func NewHandler(database *db.Database) *Handler {
	return &Handler{DB: database}
}

func parseLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return defaultLimit
	}
	return limit
}

func (h *Handler) Users(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		utils.RespondWithJSON(w, http.StatusOK, []models.User{})
		return
	}

	cursor, err := h.DB.Users.Find(r.Context(), bson.M{}, db.OptionsFindLatest(userWindow))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Search failed")
		return
	}
	defer cursor.Close(r.Context())

	var window []models.User
	if err := cursor.All(r.Context(), &window); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Search failed")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, FilterUsers(window, q, parseLimit(r)))
}

func (h *Handler) Posts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		utils.RespondWithJSON(w, http.StatusOK, []models.Post{})
		return
	}

	cursor, err := h.DB.Posts.Find(r.Context(), bson.M{}, db.OptionsFindLatest(postWindow))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Search failed")
		return
	}
	defer cursor.Close(r.Context())

	var window []models.Post
	if err := cursor.All(r.Context(), &window); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Search failed")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, FilterPosts(window, q, parseLimit(r)))
}

func MatchUser(u models.User, loweredQuery string) bool {
	return strings.Contains(strings.ToLower(u.Username), loweredQuery) ||
		strings.Contains(strings.ToLower(u.Email), loweredQuery)
}

func MatchPost(p models.Post, loweredQuery string) bool {
	haystack := strings.ToLower(p.Title + " " + p.Description + " " + strings.Join(p.Ingredients, " "))
	return strings.Contains(haystack, loweredQuery)
}

func FilterUsers(window []models.User, query string, limit int) []models.User {
	q := strings.ToLower(query)
	out := []models.User{}
	for _, u := range window {
		if MatchUser(u, q) {
			out = append(out, u)
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

func FilterPosts(window []models.Post, query string, limit int) []models.Post {
	q := strings.ToLower(query)
	out := []models.Post{}
	for _, p := range window {
		if MatchPost(p, q) {
			out = append(out, p)
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}
