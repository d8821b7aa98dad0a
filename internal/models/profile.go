package models

// Profile is a marketplace user as mirrored from the identity provider.
// A seller can only receive funds once StripeAccountID is set.
type Profile struct {
	BaseModel
	Email           string  `json:"email" gorm:"size:255;not null;uniqueIndex"`
	FullName        string  `json:"full_name" gorm:"size:255"`
	StripeAccountID *string `json:"stripe_account_id" gorm:"size:100;index"`
}

// TableName sets the table name
func (Profile) TableName() string {
	return "profiles"
}

// CanReceivePayouts reports whether the seller has a connected payout account.
func (p *Profile) CanReceivePayouts() bool {
	return p.StripeAccountID != nil && *p.StripeAccountID != ""
}

// DisplayName falls back to the email when no name was provided.
func (p *Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}
