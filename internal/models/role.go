package models

// Role groups permissions. Hierarchy grows with privilege; roles are soft-disabled
// through IsActive and never removed while users reference them.
type Role struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;size:64;not null" json:"name"`
	DisplayName string `gorm:"not null" json:"display_name"`
	Description string `json:"description"`
	Hierarchy   int    `gorm:"not null;index" json:"hierarchy"`
	IsActive    bool   `gorm:"not null" json:"is_active"`
}
