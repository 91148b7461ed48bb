package session

import "time"

// Identity carries the display fields shown next to an authenticated session.
type Identity struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
}

// Session is the authenticated context of one browser context.
type Session struct {
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Identity  Identity  `json:"identity"`
}

// Valid reports whether the session still unlocks protected views at now.
func (s Session) Valid(now time.Time) bool {
	if s.Token == "" {
		return false
	}
	return now.Before(s.ExpiresAt)
}

// TTL returns the remaining lifetime at now, or zero when expired.
func (s Session) TTL(now time.Time) time.Duration {
	remaining := s.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// View is the token-free projection returned to the browser.
type View struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName,omitempty"`
	IssuedAt    time.Time `json:"issuedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ToView strips the bearer token.
func (s Session) ToView() View {
	return View{
		Username:    s.Identity.Username,
		DisplayName: s.Identity.DisplayName,
		IssuedAt:    s.IssuedAt,
		ExpiresAt:   s.ExpiresAt,
	}
}
