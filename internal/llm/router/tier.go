package router

import "strings"

// Tier is a speed/quality class selecting an ordered endpoint list.
type Tier string

const (
	TierFast     Tier = "fast"
	TierPowerful Tier = "powerful"
)

// ParseTier maps "fast" (any case) to TierFast. Everything else,
// including the empty string, is TierPowerful.
func ParseTier(s string) Tier {
	if strings.EqualFold(strings.TrimSpace(s), string(TierFast)) {
		return TierFast
	}
	return TierPowerful
}

func (t Tier) String() string { return string(t) }
