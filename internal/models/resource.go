package models

// Resource is a protectable noun such as "entries" or "evaluations".
type Resource struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;size:64;not null" json:"name"`
	DisplayName string `gorm:"not null" json:"display_name"`
	Description string `json:"description"`
}

// Action is an operation performed on a resource such as "read" or "approve".
type Action struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;size:64;not null" json:"name"`
	DisplayName string `gorm:"not null" json:"display_name"`
	Description string `json:"description"`
}
