package domain

import "time"

type Vote struct {
	VoteID    string    `json:"id" dynamodbav:"vote_id" gorm:"primaryKey;column:vote_id"`
	UserID    string    `json:"userId" dynamodbav:"user_id" gorm:"column:user_id;uniqueIndex"`
	OptionID  string    `json:"optionId" dynamodbav:"option_id" gorm:"column:option_id;index"`
	CreatedAt time.Time `json:"timestamp" dynamodbav:"created_at" gorm:"column:created_at"`
}

// VotingOption is one entry of the fixed ballot. Votes holds the seeded
// baseline; live totals are reported through OptionResult.
type VotingOption struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Votes       int    `json:"votes"`
}

// OptionResult is a VotingOption with its current total.
type OptionResult struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Votes       int    `json:"votes"`
}

// DefaultVotingOptions is the ballot used when none is configured.
func DefaultVotingOptions() []VotingOption {
	return []VotingOption{
		{ID: "1", Title: "オプション A", Description: "コミュニティイベントの開催", Votes: 45},
		{ID: "2", Title: "オプション B", Description: "NFTコレクションの拡張", Votes: 32},
		{ID: "3", Title: "オプション C", Description: "ロードマップの更新", Votes: 28},
	}
}
