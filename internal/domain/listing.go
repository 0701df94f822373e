package domain

import "time"

// Listing statuses
const (
	StatusAvailable = "available" // Listed and purchasable
	StatusSold      = "sold"      // No longer purchasable
)

// Defaults applied by the persistence writer when optional fields are absent
const (
	DefaultDescription = "No description available."
	DefaultUnspecified = "Not specified"
)

// Listing Model (an artwork for sale)
type Listing struct {
	ID          uint      `gorm:"primaryKey" json:"id"`                             // Primary key
	Title       string    `gorm:"size:255;uniqueIndex;not null" json:"title"`       // Unique title
	Description string    `gorm:"type:text" json:"description"`                     // Free-text description
	ImageURL    string    `gorm:"size:512;not null" json:"image_url"`               // Blob store reference
	OwnerID     uint      `gorm:"index;not null" json:"owner_id"`                   // Foreign key to User
	Owner       *User     `gorm:"foreignKey:OwnerID" json:"-"`                      // Preloaded on reads
	Price       float64   `gorm:"not null" json:"price"`                            // Positive price
	Status      string    `gorm:"size:16;default:available;not null" json:"status"` // available or sold
	Dimensions  string    `gorm:"size:255" json:"dimensions"`                       // Optional dimensions
	Material    string    `gorm:"size:255" json:"material"`                         // Optional material
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                          // Creation timestamp
	UpdatedAt   time.Time `json:"updated_at"`                                       // Last update timestamp
}

// ValidStatus reports whether s is a known listing status
func ValidStatus(s string) bool {
	return s == StatusAvailable || s == StatusSold
}

// OwnedBy reports whether the listing belongs to the given user
func (l Listing) OwnedBy(userID uint) bool {
	return l.OwnerID == userID
}

// ListingView is the response shape of a listing, with the owner flattened to a summary
type ListingView struct {
	Listing
	Owner *UserSummary `json:"owner,omitempty"` // Owner summary when preloaded
}

// View builds the response shape of the listing
func (l Listing) View() ListingView {
	v := ListingView{Listing: l}
	if l.Owner != nil {
		s := l.Owner.Summary()
		v.Owner = &s
	}
	return v
}
