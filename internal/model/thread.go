package model

import "time"

// MaxTopComments caps how many comments travel with a full thread.
const MaxTopComments = 10

// CandidateThread is a lightweight discovered thread reference, returned by
// discovery before any deep fetch. Never persisted on its own.
type CandidateThread struct {
	ID         string    `json:"id"`
	Subreddit  string    `json:"subreddit"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	Permalink  string    `json:"permalink"`
	CreatedAt  time.Time `json:"created_at"`
	Upvotes    int       `json:"upvotes"`
	NumReplies int       `json:"num_replies"`
}

// ThreadComment is one top-level comment on a thread.
type ThreadComment struct {
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// FullThread is a candidate plus its body and top comments, sorted by
// descending score and capped at MaxTopComments.
type FullThread struct {
	CandidateThread

	Body        string          `json:"body"`
	TopComments []ThreadComment `json:"top_comments"`
}
