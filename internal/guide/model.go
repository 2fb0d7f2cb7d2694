package guide

import "time"

// SearchParams describes a guide request. Nil pointers mean the field was not
// supplied at all, which is a different request from an empty string.
type SearchParams struct {
	City     string   `json:"city"`
	Dish     *string  `json:"dish"`
	Price    *string  `json:"price"`
	Audience *string  `json:"audience"`
	Vibes    []string `json:"vibes"`
	Diets    []string `json:"diets"`
}

// PlaceRecord is one recommended place as produced by the generator.
type PlaceRecord struct {
	Category          string   `json:"category"`
	Name              string   `json:"name"`
	Cuisine           string   `json:"cuisine"`
	Description       string   `json:"description"`
	FoodStory         string   `json:"food_story"`
	PriceRange        string   `json:"price_range"`
	Atmosphere        string   `json:"atmosphere"`
	RecommendedDishes []string `json:"recommended_dishes"`
	SpecialExperience string   `json:"special_experience"`
	Address           string   `json:"address"`
	IsBestOf          bool     `json:"is_best_of"`
	BestOfTitle       string   `json:"best_of_title"`
}

// Guide is a persisted set of places tied to one canonical search.
// Data only ever grows; the counters are owned by the like and comment paths.
type Guide struct {
	ID           string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Params       SearchParams  `gorm:"type:text;serializer:json;not null" json:"params"`
	Data         []PlaceRecord `gorm:"type:text;serializer:json;not null" json:"data"`
	SearchKey    *string       `gorm:"uniqueIndex" json:"searchKey"`
	CreatorUID   *string       `gorm:"index" json:"creatorUid"`
	CreatedAt    time.Time     `gorm:"index;not null" json:"createdAt"`
	LikeCount    int           `gorm:"not null;default:0" json:"likeCount"`
	CommentCount int           `gorm:"not null;default:0" json:"commentCount"`
}

// Like exists iff the user likes the guide; the composite key keeps it unique.
type Like struct {
	GuideID   string    `gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `gorm:"primaryKey;type:varchar(128)"`
	CreatedAt time.Time `gorm:"not null"`
}

// Comment is append-only.
type Comment struct {
	ID         uint64    `gorm:"primaryKey" json:"id"`
	GuideID    string    `gorm:"type:varchar(36);not null;index:idx_comments_guide_created,priority:1" json:"guideId"`
	UserID     string    `gorm:"type:varchar(128);not null" json:"userId"`
	UserName   string    `gorm:"not null;default:''" json:"userName"`
	UserAvatar string    `gorm:"not null;default:''" json:"userAvatar"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	CreatedAt  time.Time `gorm:"not null;index:idx_comments_guide_created,priority:2" json:"createdAt"`
}

// LibraryEntry links a guide into a user's library. ID order is insertion order.
type LibraryEntry struct {
	ID        uint64    `gorm:"primaryKey"`
	UserID    string    `gorm:"type:varchar(128);not null;uniqueIndex:uq_library_user_guide,priority:1"`
	GuideID   string    `gorm:"type:varchar(36);not null;uniqueIndex:uq_library_user_guide,priority:2"`
	CreatedAt time.Time `gorm:"not null"`
}
