package models

// VoteDirection represents the direction of a vote. Votes are irrevocable.
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)
