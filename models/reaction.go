package models

import "time"

type DesignRequestReaction struct {
	ID              int       `json:"id" db:"id"`
	DesignRequestID int       `json:"design_request_id" db:"design_request_id"`
	UserID          int       `json:"user_id" db:"user_id"`
	Emoji           string    `json:"emoji" db:"emoji"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

type ReactionCount struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}
