package models

// Difficulty levels a bake can be tagged with.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
	DifficultyExpert = "expert"
)

func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExpert:
		return true
	}
	return false
}

type User struct {
	ID           string   `bson:"_id" json:"id"`
	Username     string   `bson:"username" json:"username"`
	Email        string   `bson:"email" json:"email"`
	PasswordHash string   `bson:"passwordHash" json:"-"`
	PhotoURL     string   `bson:"photoURL,omitempty" json:"photoURL,omitempty"`
	Bio          string   `bson:"bio,omitempty" json:"bio,omitempty"`
	Following    []string `bson:"following" json:"following"`
	Followers    []string `bson:"followers" json:"followers"`
	SavedPosts   []string `bson:"savedPosts" json:"savedPosts"`
	CreatedAt    int64    `bson:"createdAt" json:"createdAt"`
}

type Location struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
	Address   string  `bson:"address,omitempty" json:"address,omitempty"`
	City      string  `bson:"city,omitempty" json:"city,omitempty"`
	Country   string  `bson:"country,omitempty" json:"country,omitempty"`
}

type Post struct {
	ID          string    `bson:"_id" json:"id"`
	UserID      string    `bson:"userId" json:"userId"`
	Username    string    `bson:"username" json:"username"`
	UserPhoto   string    `bson:"userPhotoURL,omitempty" json:"userPhotoURL,omitempty"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description" json:"description"`
	// PhotoURL duplicates the first entry of PhotoURLs for older clients.
	PhotoURL         string    `bson:"photoURL" json:"photoURL"`
	PhotoURLs        []string  `bson:"photoURLs" json:"photoURLs"`
	Difficulty       string    `bson:"difficulty" json:"difficulty"`
	Ingredients      []string  `bson:"ingredients,omitempty" json:"ingredients,omitempty"`
	PreparationTime  int       `bson:"preparationTime,omitempty" json:"preparationTime,omitempty"`
	CookingTime      int       `bson:"cookingTime,omitempty" json:"cookingTime,omitempty"`
	Likes            int       `bson:"likes" json:"likes"`
	Comments         int       `bson:"comments" json:"comments"`
	CreatedAt        int64     `bson:"createdAt" json:"createdAt"`
	Location         *Location `bson:"location,omitempty" json:"location,omitempty"`
	OriginalRecipeID string    `bson:"originalRecipeId,omitempty" json:"originalRecipeId,omitempty"`
	IsOriginalRecipe bool      `bson:"isOriginalRecipe" json:"isOriginalRecipe"`
	ConnectedPosts   []string  `bson:"connectedPosts" json:"connectedPosts"`
}

type Comment struct {
	ID        string  `bson:"_id" json:"id"`
	PostID    string  `bson:"postId" json:"postId"`
	UserID    string  `bson:"userId" json:"userId"`
	Username  string  `bson:"username" json:"username"`
	UserPhoto *string `bson:"userPhotoURL" json:"userPhotoURL"`
	Text      string  `bson:"text" json:"text"`
	CreatedAt int64   `bson:"createdAt" json:"createdAt"`
}

// Like is a rise edge. Its _id is the `${postId}_${userId}` concatenation,
// so one user can hold at most one rise per post.
type Like struct {
	ID        string `bson:"_id" json:"id"`
	PostID    string `bson:"postId" json:"postId"`
	UserID    string `bson:"userId" json:"userId"`
	CreatedAt int64  `bson:"createdAt" json:"createdAt"`
}

func LikeKey(postID, userID string) string {
	return postID + "_" + userID
}
