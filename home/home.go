package home

import (
	"net/http"
	"strings"

	"crumb/db"
	"crumb/models"
	"crumb/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

type Handler struct {
	DB *db.Database
}

func NewHandler(database *db.Database) *Handler {
	return &Handler{DB: database}
}

// GetHomeContent serves the discover-tab endpoints under /home/:apiRoute.
func (h *Handler) GetHomeContent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	apiRoute := strings.ToLower(ps.ByName("apiRoute"))

	var (
		data interface{}
		err  error
	)

	switch apiRoute {
	case "latest":
		data, err = h.latestBakes(r)
	case "difficulties":
		data, err = difficultyLevels()
	case "tips":
		data, err = bakingTips()
	default:
		http.Error(w, "Invalid API route", http.StatusNotFound)
		return
	}

	if err != nil {
		http.Error(w, "Failed to fetch data: "+err.Error(), http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, data)
}

func (h *Handler) latestBakes(r *http.Request) ([]models.Post, error) {
	cursor, err := h.DB.Posts.Find(r.Context(), bson.M{}, db.OptionsFindLatest(20))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(r.Context())

	var posts []models.Post
	if err := cursor.All(r.Context(), &posts); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

func difficultyLevels() ([]string, error) {
	return []string{
		models.DifficultyEasy,
		models.DifficultyMedium,
		models.DifficultyHard,
		models.DifficultyExpert,
	}, nil
}

func bakingTips() ([]string, error) {
	return []string{
		"Weigh your flour, never scoop it",
		"A dutch oven traps steam for a crackly crust",
		"Cold proofing overnight deepens the flavour",
		"Score deep and at an angle for a proper ear",
	}, nil
}
