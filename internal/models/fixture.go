package models

import "time"

// Fixture is a single match as listed by the sports data API.
type Fixture struct {
	ID       int       `json:"id"`
	Date     time.Time `json:"date"`
	Status   string    `json:"status"`
	League   string    `json:"league"`
	Round    string    `json:"round,omitempty"`
	Home     string    `json:"home"`
	Away     string    `json:"away"`
	HomeGoal *int      `json:"home_goals,omitempty"`
	AwayGoal *int      `json:"away_goals,omitempty"`
}
