package models

// User is the account record. Only the role, team and activation flag take part in
// authorization decisions.
type User struct {
	BaseModel

	Username    string `gorm:"uniqueIndex;size:128;not null" json:"username"`
	Email       string `gorm:"index" json:"email"`
	DisplayName string `json:"display_name"`

	RoleID uint  `gorm:"not null;index" json:"role_id"`
	Role   *Role `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	TeamID *uint `gorm:"index" json:"team_id"`
	Team   *Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`

	IsActive bool `gorm:"not null" json:"is_active"`
}
