package model

import (
	"fmt"
	"strings"
)

// ============================================================================
// Collection status
// ============================================================================

// Collected records whether a tin has been emptied.
type Collected string

const (
	CollectedYes Collected = "yes"
	CollectedNo  Collected = "no"
)

// Localized labels, as shown on the form and written to sheets.
const (
	CollectedYesLabel = "نعم"
	CollectedNoLabel  = "لا"
)

// ParseCollected accepts the canonical values (any case) or the localized labels.
// An empty string yields the default, CollectedNo.
func ParseCollected(s string) (Collected, error) {
	v := strings.TrimSpace(s)
	switch {
	case v == "":
		return CollectedNo, nil
	case strings.EqualFold(v, string(CollectedYes)), v == CollectedYesLabel:
		return CollectedYes, nil
	case strings.EqualFold(v, string(CollectedNo)), v == CollectedNoLabel:
		return CollectedNo, nil
	}
	return "", fmt.Errorf("unknown collected value %q", s)
}

// Normalize maps anything unexpected read back from storage to CollectedNo.
func (c Collected) Normalize() Collected {
	parsed, err := ParseCollected(string(c))
	if err != nil {
		return CollectedNo
	}
	return parsed
}

// Label returns the localized label written to sheets.
func (c Collected) Label() string {
	if c == CollectedYes {
		return CollectedYesLabel
	}
	return CollectedNoLabel
}

// ============================================================================
// Donation record
// ============================================================================

// DonationFields are the five user-editable fields of a record.
type DonationFields struct {
	StoreName string    `json:"store_name"`
	Location  string    `json:"location"`
	Collected Collected `json:"collected"`
	Amount    float64   `json:"amount"`
	Notes     string    `json:"notes"`
}

// Donation is one collection tin. ID is assigned by the store and never reused.
type Donation struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StoreName string    `gorm:"type:text" json:"store_name"`
	Location  string    `gorm:"type:text" json:"location"`
	Collected Collected `gorm:"type:varchar(8);default:no" json:"collected"`
	Amount    float64   `gorm:"type:real;default:0" json:"amount"`
	Notes     string    `gorm:"type:text" json:"notes"`
}

// TableName maps Donation to the donations table.
func (Donation) TableName() string {
	return "donations"
}

// Fields returns the editable fields without the id.
func (d *Donation) Fields() DonationFields {
	return DonationFields{
		StoreName: d.StoreName,
		Location:  d.Location,
		Collected: d.Collected,
		Amount:    d.Amount,
		Notes:     d.Notes,
	}
}

// Apply overwrites all editable fields, leaving ID untouched.
func (d *Donation) Apply(f DonationFields) {
	d.StoreName = f.StoreName
	d.Location = f.Location
	d.Collected = f.Collected.Normalize()
	d.Amount = f.Amount
	d.Notes = f.Notes
}

// NewDonation builds an unsaved record from its fields.
func NewDonation(f DonationFields) *Donation {
	d := &Donation{}
	d.Apply(f)
	return d
}
