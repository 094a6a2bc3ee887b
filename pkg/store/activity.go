package store

import (
	"context"
	"errors"
	"slices"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Challenge returns a user's challenge for day (see Day).
func (s *Store) Challenge(ctx context.Context, userID uint, day string) (*DailyChallenge, error) {
	var c DailyChallenge
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND challenge_date = ?", userID, day).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// EnsureChallenge inserts a challenge for (userID, day) unless one exists
// and returns whichever is stored. Concurrent callers all see the same row.
func (s *Store) EnsureChallenge(ctx context.Context, userID uint, day, exercise string) (*DailyChallenge, error) {
	c := DailyChallenge{UserID: userID, ChallengeDate: day, Exercise: exercise}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&c).Error
	if err != nil {
		return nil, err
	}
	return s.Challenge(ctx, userID, day)
}

// CompleteChallenge marks the user's challenge for day completed when it is
// still pending and names exercise. It reports whether a challenge changed.
func (s *Store) CompleteChallenge(ctx context.Context, userID uint, day, exercise string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&DailyChallenge{}).
		Where("user_id = ? AND challenge_date = ? AND exercise = ? AND is_completed = ?", userID, day, exercise, false).
		Update("is_completed", true)
	return res.RowsAffected > 0, res.Error
}

// AddLog records count reps of exercise on day.
func (s *Store) AddLog(ctx context.Context, userID uint, exercise string, count int, day string) error {
	return s.db.WithContext(ctx).Create(&ExerciseLog{
		UserID:       userID,
		ExerciseType: exercise,
		RepsCount:    count,
		LogDate:      day,
	}).Error
}

// DailyTotals returns the summed counts of the user's most recent days
// with activity, at most limit of them, oldest first.
func (s *Store) DailyTotals(ctx context.Context, userID uint, limit int) ([]DailyTotal, error) {
	var rows []DailyTotal
	err := s.db.WithContext(ctx).Model(&ExerciseLog{}).
		Select("log_date AS date, SUM(reps_count) AS count").
		Where("user_id = ?", userID).
		Group("log_date").
		Order("log_date DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	slices.Reverse(rows)
	return rows, nil
}
