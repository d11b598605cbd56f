package domain

import "time"

// Project groups the tracked keywords and brand settings of one site.
type Project struct {
	ID           string    `json:"id"            db:"id"`
	UserID       string    `json:"user_id"       db:"user_id"`
	Name         string    `json:"name"          db:"name"`
	BrandName    string    `json:"brand_name"    db:"brand_name"`
	BrandDomain  string    `json:"brand_domain"  db:"brand_domain"`
	Keywords     []string  `json:"keywords"      db:"keywords"`
	LocationCode int       `json:"location_code" db:"location_code"`
	LanguageCode string    `json:"language_code" db:"language_code"`
	ScheduleCron string    `json:"schedule_cron" db:"schedule_cron"` // empty = manual fetches only
	CreatedAt    time.Time `json:"created_at"    db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"    db:"updated_at"`
}

// Brand returns the brand configuration used for rank computation.
func (p *Project) Brand() Brand {
	return Brand{Name: p.BrandName, Domain: p.BrandDomain}
}

// Brand is the tracked brand. Both fields may be empty, which disables
// brand rank computation.
type Brand struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// IsEmpty reports whether no brand is configured.
func (b Brand) IsEmpty() bool {
	return b.Name == "" && b.Domain == ""
}
