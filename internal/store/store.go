package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store provides the point operations the bot needs. Every method is a
// single self-contained statement; callers never span transactions.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// UpsertUser records the user on every inbound message so first-contact
// users exist even when their request is denied.
func (s *Store) UpsertUser(ctx context.Context, id int64, username string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "updated_at"}),
	}).Create(&User{ID: id, Username: username}).Error
}

func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) IsBanned(ctx context.Context, userID int64) (bool, error) {
	var b Ban
	err := s.db.WithContext(ctx).First(&b, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) SetBan(ctx context.Context, userID int64) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Ban{UserID: userID}).Error
}

func (s *Store) ClearBan(ctx context.Context, userID int64) error {
	return s.db.WithContext(ctx).Delete(&Ban{}, "user_id = ?", userID).Error
}

// GetSetting returns fallback when the key has never been set.
func (s *Store) GetSetting(ctx context.Context, key, fallback string) (string, error) {
	var row Setting
	err := s.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fallback, nil
	}
	if err != nil {
		return fallback, err
	}
	return row.Value, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&Setting{Key: key, Value: value}).Error
}

func (s *Store) AppendLog(ctx context.Context, entry *LogEntry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *Store) LastGenTS(ctx context.Context, userID int64) (int64, error) {
	var u User
	err := s.db.WithContext(ctx).First(&u, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return u.LastGenTS, nil
}

// SetLastGenTS only moves the timestamp forward.
func (s *Store) SetLastGenTS(ctx context.Context, userID int64, ts int64) error {
	return s.db.WithContext(ctx).Model(&User{}).
		Where("id = ? AND last_gen_ts <= ?", userID, ts).
		Update("last_gen_ts", ts).Error
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&User{}).Count(&n).Error
	return n, err
}

func (s *Store) CountLogs(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&LogEntry{}).Count(&n).Error
	return n, err
}

// ListUserIDs returns all known user ids in primary-key order.
func (s *Store) ListUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&User{}).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// RecentLogs returns the newest entries first.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]LogEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []LogEntry
	err := s.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

var groupableFields = map[string]bool{
	"style":  true,
	"prompt": true,
}

// TopGroupedBy counts log rows grouped by field, most frequent first.
// The field name is interpolated, so it is restricted to a whitelist.
func (s *Store) TopGroupedBy(ctx context.Context, field string, limit int) ([]GroupCount, error) {
	field = strings.ToLower(strings.TrimSpace(field))
	if !groupableFields[field] {
		return nil, fmt.Errorf("store: cannot group logs by %q", field)
	}
	if limit <= 0 || limit > 50 {
		limit = 5
	}

	var rows []GroupCount
	err := s.db.WithContext(ctx).Model(&LogEntry{}).
		Select(field + " AS value, COUNT(*) AS count").
		Where(field + " <> ''").
		Group(field).
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
