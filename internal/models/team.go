package models

type Team struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;size:128;not null" json:"name"`
	Description string `json:"description"`
}
