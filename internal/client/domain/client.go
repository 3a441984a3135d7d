package domain

import "time"

// Client is a tenant of the captcha service. The site key is the public
// widget-facing handle; the API key (stored only as a peppered hash) is the
// server-side credential used to redeem proof tokens.
type Client struct {
	ID                string
	Name              string
	SiteKey           string
	APIKeyHash        string
	Plan              string
	MonthlyLimit      int
	APIKeyLastRotated *time.Time
	CreatedAt         time.Time
}
