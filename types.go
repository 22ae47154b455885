package main

import (
	"time"

	"splatbot/internal/cache"
	"splatbot/internal/schedule"
)

// MatchRequest is the query of the /match debug endpoint.
type MatchRequest struct {
	Text string `json:"text" form:"text" query:"text"`
}

type MatchResponse struct {
	Text     string             `json:"text"`
	Category string             `json:"category,omitempty"`
	Index    int                `json:"index"`
	Schedule *schedule.Resolved `json:"schedule,omitempty"`
	Result   string             `json:"result"`
}

type ReloadResponse struct {
	Message    string    `json:"message"`
	Resource   string    `json:"resource,omitempty"`
	ReloadedAt time.Time `json:"reloaded_at"`
}

type CacheInfoResponse struct {
	Resources        []cache.Info        `json:"resources"`
	Keywords         map[string][]string `json:"keywords,omitempty"`
	KeywordsFile     string              `json:"keywords_file,omitempty"`
	KeywordsLoadedAt *time.Time          `json:"keywords_loaded_at,omitempty"`
	Timestamp        time.Time           `json:"timestamp"`
}
