package models

// RewardType is the closed set of things a tournament can pay out.
type RewardType string

const (
	RewardCoins    RewardType = "coins"
	RewardGems     RewardType = "gems"
	RewardItem     RewardType = "item"
	RewardCrateKey RewardType = "crate_key"
	RewardBadge    RewardType = "badge"
)

// Prize is the configured reward for one final position (1-based).
// RewardAmount is used by coins/gems, RewardItemID by item/crate_key/badge.
type Prize struct {
	ID           int        `json:"id"`
	TournamentID int        `json:"tournament_id"`
	Position     int        `json:"position"`
	RewardType   RewardType `json:"reward_type"`
	RewardAmount *int64     `json:"reward_amount,omitempty"`
	RewardItemID *string    `json:"reward_item_id,omitempty"`
	Description  string     `json:"description"`
}

func (t RewardType) Valid() bool {
	switch t {
	case RewardCoins, RewardGems, RewardItem, RewardCrateKey, RewardBadge:
		return true
	}
	return false
}

// Monetary reports whether the reward draws from the coin/gem prize pool.
func (t RewardType) Monetary() bool {
	return t == RewardCoins || t == RewardGems
}
