package models

import (
	"time"

	"github.com/google/uuid"
)

// Set is one logged set. WeightKg of 0 denotes a bodyweight set.
type Set struct {
	WeightKg float64 `json:"weight"`
	Reps     int     `json:"reps"`
}

// ExerciseEntry is one exercise within a workout. Name is a catalog identifier.
type ExerciseEntry struct {
	Name string `json:"name"`
	Sets []Set  `json:"sets"`
}

// Workout is a row of the workouts table with its decoded exercises.
// WorkoutScore is cached at write time from the body weight current at that moment.
type Workout struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"userId"`
	Date         time.Time       `json:"date"`
	DurationMin  *int            `json:"duration,omitempty"`
	Exercises    []ExerciseEntry `json:"exercises"`
	WorkoutScore float64         `json:"workoutScore"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// User is a row of the users table. PasswordHash never leaves the server.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Profile is a row of the profiles table, one per user.
type Profile struct {
	UserID         uuid.UUID `json:"userId"`
	Name           string    `json:"name"`
	Username       string    `json:"username"`
	WeightKg       float64   `json:"weight"`
	ProfilePicture *string   `json:"profilePicture"`
	Score          float64   `json:"score"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	Name     string  `json:"name"`
	Username string  `json:"username"`
	WeightKg float64 `json:"weight"`
}

// WorkoutInput is the client-supplied part of a workout.
type WorkoutInput struct {
	Date        Date            `json:"date"`
	DurationMin *int            `json:"duration,omitempty"`
	Exercises   []ExerciseEntry `json:"exercises"`
}
