package models

// App is a partner application listed in the catalog (table referstore).
type App struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	ReferrerBonus  float64 `json:"referrer_bonus"`
	RefereeBonus   float64 `json:"referee_bonus"`
	Task           string  `json:"task"`
	Link           string  `json:"link"`
	MyReferralLink string  `json:"my_referral_link"`
	IconURL        string  `json:"icon_url"`
}
