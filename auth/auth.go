package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"crumb/apperr"
	"crumb/db"
	"crumb/models"
	"crumb/rdx"
	"crumb/tokens"
	"crumb/utils"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

type Handler struct {
	DB     *db.Database
	Cache  *rdx.Cache
	Secret []byte
}

func NewHandler(database *db.Database, cache *rdx.Cache, secret string) *Handler {
	return &Handler{DB: database, Cache: cache, Secret: []byte(secret)}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func (h *Handler) issueTokens(userID, username string) (tokenPair, error) {
	access, err := tokens.Sign(h.Secret, userID, username, tokens.AccessTTL)
	if err != nil {
		return tokenPair{}, err
	}
	refresh, err := tokens.Sign(h.Secret, userID, username, tokens.RefreshTTL)
	if err != nil {
		return tokenPair{}, err
	}
	return tokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(tokens.AccessTTL.Seconds()),
	}, nil
}

// Register creates the credential record and the profile document in
// one go. Duplicate email/username and weak passwords are auth errors.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	user, err := h.register(r.Context(), req)
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}

	pair, err := h.issueTokens(user.ID, user.Username)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to issue tokens")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"user": user, "tokens": pair})
}

func (h *Handler) register(ctx context.Context, req registerRequest) (*models.User, error) {
	if req.Email == "" || req.Username == "" {
		return nil, apperr.New(apperr.Auth, "email and username are required")
	}
	if len(req.Password) < minPasswordLen {
		return nil, apperr.New(apperr.Auth, "password too weak")
	}

	count, err := h.DB.Users.CountDocuments(ctx, bson.M{"$or": []bson.M{
		{"email": req.Email},
		{"username": req.Username},
	}})
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "failed to check existing account", err)
	}
	if count > 0 {
		return nil, apperr.New(apperr.Auth, "account already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.Auth, "failed to hash password", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Following:    []string{},
		Followers:    []string{},
		SavedPosts:   []string{},
		CreatedAt:    time.Now().UnixMilli(),
	}
	if _, err := h.DB.Users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperr.New(apperr.Auth, "account already exists")
		}
		return nil, apperr.Wrap(apperr.Persistence, "failed to create user", err)
	}
	return user, nil
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.login(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}

	pair, err := h.issueTokens(user.ID, user.Username)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to issue tokens")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"user": user, "tokens": pair})
}

func (h *Handler) login(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := h.DB.Users.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.Auth, "invalid credentials")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "failed to load user", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperr.New(apperr.Auth, "invalid credentials")
	}

	// Credential records imported from before profiles existed can miss
	// a username. Backfill from the email rather than failing the login.
	if user.Username == "" {
		user.Username = FallbackUsername(user.Email)
		_, err := h.DB.Users.UpdateOne(ctx, bson.M{"_id": user.ID},
			bson.M{"$set": bson.M{"username": user.Username}})
		if err != nil {
			return nil, apperr.Wrap(apperr.Persistence, "failed to backfill profile", err)
		}
	}
	if user.Following == nil {
		user.Following = []string{}
	}
	if user.Followers == nil {
		user.Followers = []string{}
	}
	if user.SavedPosts == nil {
		user.SavedPosts = []string{}
	}
	return &user, nil
}

// FallbackUsername derives a display name from the email local part,
// falling back to the literal "User" when that is empty too.
func FallbackUsername(email string) string {
	local := email
	if i := strings.Index(email, "@"); i >= 0 {
		local = email[:i]
	}
	local = strings.TrimSpace(local)
	if local == "" {
		return "User"
	}
	return local
}

// Logout blacklists the presented token for whatever validity it has left.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing token")
		return
	}
	claims, err := tokens.Parse(h.Secret, raw)
	if err == nil && h.Cache != nil {
		_ = h.Cache.RevokeToken(r.Context(), raw, tokens.RemainingTTL(claims))
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing refresh token")
		return
	}
	claims, err := tokens.Parse(h.Secret, req.RefreshToken)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	if h.Cache != nil && h.Cache.IsTokenRevoked(r.Context(), req.RefreshToken) {
		utils.RespondWithError(w, http.StatusUnauthorized, "Refresh token revoked")
		return
	}
	pair, err := h.issueTokens(claims.UserID, claims.Username)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to issue tokens")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, pair)
}
