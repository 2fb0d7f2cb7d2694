package guide

import (
	"context"
	"errors"
	"fmt"
	"time"

	"foodguide/internal/auth"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repo is the GuideStore on top of gorm. Every counter change happens in the
// same transaction as the record change it counts.
type Repo struct {
	DB *gorm.DB
}

func (r *Repo) FindBySearchKey(ctx context.Context, key string) (*Guide, error) {
	var g Guide
	err := r.DB.WithContext(ctx).Where("search_key = ?", key).Order("created_at asc").First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// CreateGuide stores a new guide and returns its id. It is insert-if-absent on
// the search key: when another writer stored the same key first, that guide's
// id is returned and nothing new is written.
func (r *Repo) CreateGuide(ctx context.Context, params SearchParams, data []PlaceRecord, searchKey, creatorUID string) (string, error) {
	g := Guide{
		ID:        uuid.NewString(),
		Params:    params,
		Data:      data,
		CreatedAt: time.Now(),
	}
	if searchKey != "" {
		g.SearchKey = &searchKey
	}
	if creatorUID != "" {
		g.CreatorUID = &creatorUID
	}

	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "search_key"}}, DoNothing: true}).
		Create(&g)
	if res.Error != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistence, res.Error)
	}

	if res.RowsAffected == 0 {
		existing, err := r.FindBySearchKey(ctx, searchKey)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		return existing.ID, nil
	}

	return g.ID, nil
}

// AppendToGuideData extends the stored place list in order. Names are not
// deduplicated against what is already there.
func (r *Repo) AppendToGuideData(ctx context.Context, id string, records []PlaceRecord) error {
	if len(records) == 0 {
		return nil
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var g Guide
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "data").
			Where("id = ?", id).
			First(&g).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		merged := make([]PlaceRecord, 0, len(g.Data)+len(records))
		merged = append(merged, g.Data...)
		merged = append(merged, records...)

		return tx.Model(&Guide{ID: id}).Select("data").Updates(&Guide{Data: merged}).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (r *Repo) GetGuide(ctx context.Context, id string) (*Guide, error) {
	var g Guide
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&g).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *Repo) ListAllGuides(ctx context.Context) ([]Guide, error) {
	var out []Guide
	if err := r.DB.WithContext(ctx).Order("created_at desc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) AddToUserLibrary(ctx context.Context, userID, guideID string) error {
	e := LibraryEntry{UserID: userID, GuideID: guideID, CreatedAt: time.Now()}
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "guide_id"}},
			DoNothing: true,
		}).
		Create(&e).Error
}

func (r *Repo) RemoveFromUserLibrary(ctx context.Context, userID, guideID string) error {
	return r.DB.WithContext(ctx).
		Where("user_id = ? AND guide_id = ?", userID, guideID).
		Delete(&LibraryEntry{}).Error
}

// ListUserLibrary returns the user's guides, most recently added first.
// Entries whose guide is gone are skipped.
func (r *Repo) ListUserLibrary(ctx context.Context, userID string) ([]Guide, error) {
	var entries []LibraryEntry
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []Guide{}, nil
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.GuideID)
	}

	var guides []Guide
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&guides).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]Guide, len(guides))
	for _, g := range guides {
		byID[g.ID] = g
	}

	out := make([]Guide, 0, len(guides))
	for _, id := range ids {
		if g, ok := byID[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *Repo) IsLiked(ctx context.Context, guideID, userID string) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&Like{}).
		Where("guide_id = ? AND user_id = ?", guideID, userID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ToggleLike flips the user's like and moves like_count with it, in one
// transaction. The count is clamped at zero.
func (r *Repo) ToggleLike(ctx context.Context, guideID, userID string) (int, bool, error) {
	var (
		newCount int
		liked    bool
	)

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var g Guide
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "like_count").
			Where("id = ?", guideID).
			First(&g).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionConflict
			}
			return err
		}

		res := tx.Where("guide_id = ? AND user_id = ?", guideID, userID).Delete(&Like{})
		if res.Error != nil {
			return res.Error
		}

		delta := -1
		if res.RowsAffected == 0 {
			if err := tx.Create(&Like{GuideID: guideID, UserID: userID, CreatedAt: time.Now()}).Error; err != nil {
				return err
			}
			delta = 1
			liked = true
		} else {
			liked = false
		}

		newCount = max(0, g.LikeCount+delta)

		return tx.Model(&Guide{}).Where("id = ?", guideID).UpdateColumn("like_count", newCount).Error
	})
	if err != nil {
		if errors.Is(err, ErrTransactionConflict) {
			return 0, false, err
		}
		return 0, false, fmt.Errorf("%w: %v", ErrTransactionConflict, err)
	}

	return newCount, liked, nil
}

// PostComment inserts the comment and bumps comment_count by one as a unit.
func (r *Repo) PostComment(ctx context.Context, guideID string, who auth.Identity, text string) (*Comment, error) {
	c := Comment{
		GuideID:    guideID,
		UserID:     who.UID,
		UserName:   who.DisplayName,
		UserAvatar: who.PhotoURL,
		Text:       text,
		CreatedAt:  time.Now(),
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Guide{}).
			Where("id = ?", guideID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		return tx.Create(&c).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return &c, nil
}

func (r *Repo) ListComments(ctx context.Context, guideID string) ([]Comment, error) {
	var out []Comment
	if err := r.DB.WithContext(ctx).
		Where("guide_id = ?", guideID).
		Order("created_at asc, id asc").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
