package model

const (
	Upvote   = 1
	Downvote = -1
)

// VoteRequest carries both citizen votes and verification signals; the value must be +1 or -1.
type VoteRequest struct {
	Value int `json:"value" validate:"required,oneof=1 -1"`
}

func ValidVoteValue(v int) bool {
	return v == Upvote || v == Downvote
}
