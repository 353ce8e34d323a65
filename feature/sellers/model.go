package sellers

import (
	"strings"
	"time"
)

// Seller maps a storage folder to the company allowed to drop files into it.
type Seller struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FolderName  string    `gorm:"size:128;uniqueIndex" json:"folderName"`
	CompanyName string    `gorm:"size:255" json:"companyName"`
	Active      bool      `gorm:"not null" json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName overrides the table name.
func (Seller) TableName() string {
	return "sellers"
}

// NormalizeFolder lower-cases and trims a folder name.
func NormalizeFolder(folder string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(folder), "/"))
}
