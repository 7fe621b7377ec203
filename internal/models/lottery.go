package models

// Participant represents a person entering the lottery.
// IsWinner is flipped by the draw engine and cleared on history reset.
type Participant struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Code       string `json:"code"` // employee number
	Department string `json:"department"`
	IsWinner   bool   `json:"isWinner"`
}

// Prize represents a single prize tier.
// Count is the total number of slots, DrawnCount how many have been won so far.
type Prize struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Count       int    `json:"count"`
	DrawnCount  int    `json:"drawnCount"`
	Image       string `json:"image,omitempty"` // URL, data URI or a short emoji
	Description string `json:"description,omitempty"`
}

// Remaining returns the number of slots not yet drawn.
func (p Prize) Remaining() int {
	if r := p.Count - p.DrawnCount; r > 0 {
		return r
	}
	return 0
}

// Winner links a participant to the prize they won in one draw.
type Winner struct {
	ID            string `json:"id"`
	ParticipantID string `json:"participantId"`
	PrizeID       string `json:"prizeId"`
	Timestamp     int64  `json:"timestamp"` // unix millis
}

// SiteConfig holds the on-screen branding.
type SiteConfig struct {
	LogoURL   string `json:"logoUrl,omitempty"`
	BrandName string `json:"brandName"`
	EventName string `json:"eventName"`
}

// AppState is the whole persisted record.
type AppState struct {
	Participants []Participant `json:"participants"`
	Prizes       []Prize       `json:"prizes"`
	Winners      []Winner      `json:"winners"`
	SiteConfig   SiteConfig    `json:"siteConfig"`
}

// DefaultDepartment is used when an imported participant has no department.
const DefaultDepartment = "通用"

// DefaultSiteConfig returns the branding used before anything is configured.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{BrandName: "CYPRESSTEL", EventName: "Annual Gala 2025"}
}

// DefaultPrizes returns the prize tiers seeded into a fresh record.
func DefaultPrizes() []Prize {
	return []Prize{
		{ID: "1", Name: "特等奖", Count: 1, Description: "神秘大奖", Image: "🎁"},
		{ID: "2", Name: "一等奖", Count: 3, Description: "新款智能手机", Image: "📱"},
		{ID: "3", Name: "二等奖", Count: 10, Description: "降噪耳机", Image: "🎧"},
	}
}

// DefaultState returns the fallback state used when no record exists or the
// stored record cannot be decoded.
func DefaultState() AppState {
	return AppState{
		Participants: []Participant{},
		Prizes:       DefaultPrizes(),
		Winners:      []Winner{},
		SiteConfig:   DefaultSiteConfig(),
	}
}

// Normalize fills the gaps a stored record may have. Backends drop empty
// arrays, so a nil slice is treated as empty, except prizes which fall back
// to the default tiers. A record without a brand name gets the default
// branding.
func (s AppState) Normalize() AppState {
	if s.Participants == nil {
		s.Participants = []Participant{}
	}
	if s.Prizes == nil {
		s.Prizes = DefaultPrizes()
	}
	if s.Winners == nil {
		s.Winners = []Winner{}
	}
	if s.SiteConfig.BrandName == "" {
		s.SiteConfig = DefaultSiteConfig()
	}
	return s
}

// Clone returns a deep copy so callers can't mutate shared slices.
func (s AppState) Clone() AppState {
	return AppState{
		Participants: append([]Participant{}, s.Participants...),
		Prizes:       append([]Prize{}, s.Prizes...),
		Winners:      append([]Winner{}, s.Winners...),
		SiteConfig:   s.SiteConfig,
	}
}

// StatePatch carries a partial update of AppState. A nil field is left untouched.
type StatePatch struct {
	Participants *[]Participant `json:"participants,omitempty"`
	Prizes       *[]Prize       `json:"prizes,omitempty"`
	Winners      *[]Winner      `json:"winners,omitempty"`
	SiteConfig   *SiteConfig    `json:"siteConfig,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p StatePatch) IsEmpty() bool {
	return p.Participants == nil && p.Prizes == nil && p.Winners == nil && p.SiteConfig == nil
}

// Apply returns s with the patch applied.
func (p StatePatch) Apply(s AppState) AppState {
	if p.Participants != nil {
		s.Participants = append([]Participant{}, (*p.Participants)...)
	}
	if p.Prizes != nil {
		s.Prizes = append([]Prize{}, (*p.Prizes)...)
	}
	if p.Winners != nil {
		s.Winners = append([]Winner{}, (*p.Winners)...)
	}
	if p.SiteConfig != nil {
		s.SiteConfig = *p.SiteConfig
	}
	return s
}

// HistoryEntry is a winner record joined with the participant and prize it
// references, for display and export.
type HistoryEntry struct {
	Winner
	ParticipantName string `json:"participantName"`
	ParticipantCode string `json:"participantCode"`
	Department      string `json:"department"`
	PrizeName       string `json:"prizeName"`
}
