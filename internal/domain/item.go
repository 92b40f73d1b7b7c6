package domain

// ItemType separates sponsor items from the standard list
type ItemType string

const (
	ItemTypeStandard ItemType = "standard"
	ItemTypeSponsor  ItemType = "sponsor"
)

// HypeVideoItemID is the bonus item that may carry an Instagram post link
const HypeVideoItemID = "hype_video"

// Item is one entry of the static hunt catalog
type Item struct {
	ID          string   `json:"id" yaml:"id"`
	Label       string   `json:"label" yaml:"label"`
	Points      int      `json:"points" yaml:"points"`
	ItemType    ItemType `json:"item_type" yaml:"item_type"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	BonusHint   string   `json:"bonus_hint,omitempty" yaml:"bonus_hint,omitempty"`
}

// IsHypeVideo reports whether the item accepts an ig_post_url
func (i Item) IsHypeVideo() bool {
	return i.ID == HypeVideoItemID
}
