// Package ingest holds types shared by workout import providers.
package ingest

// Result holds the outcome of an ingest operation.
type Result struct {
	SessionsReceived int      `json:"sessionsReceived"`
	WorkoutsInserted int      `json:"workoutsInserted"`
	SetsReceived     int      `json:"setsReceived"`
	WarmupsSkipped   int      `json:"warmupsSkipped"`
	ExercisesSkipped int      `json:"exercisesSkipped"`
	RejectedNames    []string `json:"rejectedNames,omitempty"`
	Message          string   `json:"message,omitempty"`
}
