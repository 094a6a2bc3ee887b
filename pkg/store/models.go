package store

import "time"

// User is a registered account.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"user_id"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login"`
}

// UserSession records an issued token so it can be revoked on logout.
// Only the SHA-256 of the token is stored.
type UserSession struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index;not null"`
	TokenHash string `gorm:"index;not null"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"not null"`
	IsActive  bool      `gorm:"default:true"`
}

// DailyChallenge is the exercise a user is asked to do on a given day.
type DailyChallenge struct {
	ID            uint   `gorm:"primaryKey" json:"-"`
	UserID        uint   `gorm:"uniqueIndex:idx_challenge_user_date;not null" json:"-"`
	ChallengeDate string `gorm:"uniqueIndex:idx_challenge_user_date;not null" json:"date"`
	Exercise      string `gorm:"not null" json:"exercise"`
	IsCompleted   bool   `gorm:"default:false" json:"is_completed"`
}

// ExerciseLog is one logged batch of reps (or held seconds).
type ExerciseLog struct {
	ID           uint   `gorm:"primaryKey"`
	UserID       uint   `gorm:"index;not null"`
	ExerciseType string `gorm:"not null"`
	RepsCount    int    `gorm:"not null"`
	LogDate      string `gorm:"index;not null"`
}

// DailyTotal is the sum of logged reps for one day.
type DailyTotal struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}
