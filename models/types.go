package models

// Validation limits
const (
	MaxQuestionLength = 280
	MaxOptionLength   = 280
	MinOptions        = 2
	MaxOptions        = 10
	MaxCommentLength  = 500
)

// Feed limits
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	TrendingLimit   = 50
)

// User feed sort orders
const (
	SortRecent     = "recent"
	SortOldest     = "oldest"
	SortMostVoted  = "most-voted"
	SortLeastVoted = "least-voted"
)

// VoteAction describes which transition a vote request caused.
type VoteAction string

const (
	VoteCast    VoteAction = "voted"
	VoteRemoved VoteAction = "unvoted"
	VoteChanged VoteAction = "changed"
)

// TrendingScore weights votes over likes over views.
func TrendingScore(totalVotes, likes, views int) float64 {
	return float64(totalVotes)*2 + float64(likes) + float64(views)*0.1
}

// Request types

type CreatePollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Dev      bool     `json:"dev"`
}

type VoteRequest struct {
	OptionID string `json:"option_id"`
}

type UserVotesRequest struct {
	UserID  string   `json:"user_id"`
	PollIDs []string `json:"poll_ids"`
}

type CreateCommentRequest struct {
	Text string `json:"text"`
}

type UpsertUserRequest struct {
	Username        string  `json:"username"`
	ProfileImageURL *string `json:"profile_image_url,omitempty"`
}

type UpdateUsernameRequest struct {
	Username string `json:"username"`
}

type UpdateProfileImageRequest struct {
	ProfileImageURL string `json:"profile_image_url"`
}

type AvatarUploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

// Response types

// MutationResponse is the structured result of every write operation.
// Failures carry a human readable error and never a partial result.
type MutationResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type CreatePollResponse struct {
	Success bool   `json:"success"`
	PollID  string `json:"poll_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

type VoteResponse struct {
	Success bool       `json:"success"`
	Action  VoteAction `json:"action,omitempty"`
	Poll    *Poll      `json:"poll,omitempty"`
	Error   string     `json:"error,omitempty"`
}

type LikeResponse struct {
	Liked bool `json:"liked"`
}

type UserVoteResponse struct {
	PollID   string  `json:"poll_id"`
	OptionID *string `json:"option_id"`
}

type PollStats struct {
	TotalPolls int `json:"total_polls"`
	TotalVotes int `json:"total_votes"`
}

type UpsertUserResponse struct {
	Success bool   `json:"success"`
	Updated bool   `json:"updated"`
	Error   string `json:"error,omitempty"`
}

type UpdateProfileImageResponse struct {
	Success bool `json:"success"`
	Skipped bool `json:"skipped"`
}

type AvatarUploadResponse struct {
	UploadURL string `json:"upload_url"`
	Key       string `json:"key"`
	PublicURL string `json:"public_url"`
}

type SitemapStats struct {
	TotalUsers    int    `json:"total_users"`
	TotalPolls    int    `json:"total_polls"`
	TotalURLs     int    `json:"total_urls"`
	LastGenerated string `json:"last_generated"`
}

// Domain types

// Timestamps are unix milliseconds.

type Poll struct {
	ID                    string   `json:"id"`
	Question              string   `json:"question"`
	TotalVotes            int      `json:"total_votes"`
	Dev                   bool     `json:"dev"`
	AuthorID              string   `json:"author_id"`
	AuthorUsername        string   `json:"author_username"`
	AuthorProfileImageURL *string  `json:"author_profile_image_url,omitempty"`
	CreatedAt             int64    `json:"created_at"`
	CreatedAgo            string   `json:"created_ago"`
	Views                 int      `json:"views"`
	Likes                 int      `json:"likes"`
	TrendingScore         float64  `json:"trending_score"`
	Options               []Option `json:"options"`
}

type Option struct {
	ID           string   `json:"id"`
	PollID       string   `json:"poll_id"`
	Text         string   `json:"text"`
	Votes        int      `json:"votes"`
	VotedUserIDs []string `json:"voted_user_ids"`
}

// PollPage is one page of a poll feed. ContinueCursor is nil once IsDone.
type PollPage struct {
	Polls          []Poll  `json:"polls"`
	IsDone         bool    `json:"is_done"`
	ContinueCursor *string `json:"continue_cursor"`
}

type User struct {
	UserID          string  `json:"user_id"`
	Username        string  `json:"username"`
	ProfileImageURL *string `json:"profile_image_url,omitempty"`
	CreatedAt       int64   `json:"created_at"`
}

type UserSummary struct {
	Username  string `json:"username"`
	CreatedAt int64  `json:"created_at"`
}

type Comment struct {
	ID                    string  `json:"id"`
	PollID                string  `json:"poll_id"`
	UserID                string  `json:"user_id"`
	Username              string  `json:"username"`
	Text                  string  `json:"text"`
	CreatedAt             int64   `json:"created_at"`
	AuthorProfileImageURL *string `json:"author_profile_image_url,omitempty"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
