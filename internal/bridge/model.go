// Package bridge reads the state of per-user bridge migration jobs.
package bridge

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Statuses lists every job status in lifecycle order.
var Statuses = []Status{StatusQueued, StatusRunning, StatusDone, StatusFailed}

type Row struct {
	ID          string     `bson:"_id" json:"id"`
	UserID      string     `bson:"user_id" json:"user_id"`
	FromProfile string     `bson:"from_profile" json:"from_profile"`
	ToProfile   string     `bson:"to_profile" json:"to_profile"`
	Status      Status     `bson:"status" json:"status"`
	StartedAt   time.Time  `bson:"started_at" json:"started_at"`
	FinishedAt  *time.Time `bson:"finished_at,omitempty" json:"finished_at,omitempty"`
	Details     bson.M     `bson:"details,omitempty" json:"details,omitempty"`
}

type Summary struct {
	CountsByStatus map[Status]int `json:"counts_by_status"`
	Total          int            `json:"total"`
}
