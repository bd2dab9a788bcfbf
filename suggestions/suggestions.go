package suggestions

import (
	"net/http"
	"strconv"

	"crumb/db"
	"crumb/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Handler struct {
	DB *db.Database
}

func NewHandler(database *db.Database) *Handler {
	return &Handler{DB: database}
}

type suggestedUser struct {
	ID          string `bson:"_id" json:"id"`
	Username    string `bson:"username" json:"username"`
	PhotoURL    string `bson:"photoURL,omitempty" json:"photoURL,omitempty"`
	Bio         string `bson:"bio,omitempty" json:"bio,omitempty"`
	IsFollowing bool   `bson:"-" json:"isFollowing"`
}

// SuggestBakers lists users the caller does not follow yet, paginated.
func (h *Handler) SuggestBakers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = 10
	}
	skip := (page - 1) * limit

	var me struct {
		Following []string `bson:"following"`
	}
	err = h.DB.Users.FindOne(r.Context(), bson.M{"_id": userID}).Decode(&me)
	if err != nil && err != mongo.ErrNoDocuments {
		http.Error(w, "Failed to fetch follow data", http.StatusInternalServerError)
		return
	}

	excluded := append(me.Following, userID)
	filter := bson.M{"_id": bson.M{"$nin": excluded}}
	opts := options.Find().
		SetSkip(int64(skip)).
		SetLimit(int64(limit)).
		SetProjection(bson.M{
			"username": 1,
			"photoURL": 1,
			"bio":      1,
		})

	cursor, err := h.DB.Users.Find(r.Context(), filter, opts)
	if err != nil {
		http.Error(w, "Failed to fetch suggestions", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(r.Context())

	var suggested []suggestedUser
	for cursor.Next(r.Context()) {
		var s suggestedUser
		if err := cursor.Decode(&s); err == nil {
			s.IsFollowing = false
			suggested = append(suggested, s)
		}
	}
	if len(suggested) == 0 {
		suggested = []suggestedUser{}
	}
	utils.RespondWithJSON(w, http.StatusOK, suggested)
}
