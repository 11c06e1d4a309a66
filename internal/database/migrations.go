package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/qualitrack/qualitrack/internal/models"
	"github.com/qualitrack/qualitrack/internal/permissions"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Team{},
		&models.Role{},
		&models.Resource{},
		&models.Action{},
		&models.User{},
		&models.Permission{},
		&models.PermissionAudit{},
	)
}

// SeedData persists the permission catalog: resources, actions, built-in roles and their
// default grants. Existing rows are left untouched, so grants revoked by an administrator
// stay revoked.
func SeedData(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		resourceIDs := make(map[string]uint)
		for _, def := range permissions.Resources() {
			var row models.Resource
			attrs := models.Resource{Name: def.Name, DisplayName: def.DisplayName, Description: def.Description}
			if err := tx.Where(models.Resource{Name: def.Name}).Attrs(attrs).FirstOrCreate(&row).Error; err != nil {
				return fmt.Errorf("seed resource %s: %w", def.Name, err)
			}
			resourceIDs[def.Name] = row.ID
		}

		actionIDs := make(map[string]uint)
		for _, def := range permissions.Actions() {
			var row models.Action
			attrs := models.Action{Name: def.Name, DisplayName: def.DisplayName, Description: def.Description}
			if err := tx.Where(models.Action{Name: def.Name}).Attrs(attrs).FirstOrCreate(&row).Error; err != nil {
				return fmt.Errorf("seed action %s: %w", def.Name, err)
			}
			actionIDs[def.Name] = row.ID
		}

		for _, def := range permissions.Roles() {
			var role models.Role
			attrs := models.Role{
				Name:        def.Name,
				DisplayName: def.DisplayName,
				Description: def.Description,
				Hierarchy:   def.Hierarchy,
				IsActive:    true,
			}
			if err := tx.Where(models.Role{Name: def.Name}).Attrs(attrs).FirstOrCreate(&role).Error; err != nil {
				return fmt.Errorf("seed role %s: %w", def.Name, err)
			}

			for _, grant := range def.Grants {
				triple := models.Permission{
					RoleID:     role.ID,
					ResourceID: resourceIDs[grant.Resource],
					ActionID:   actionIDs[grant.Action],
				}
				var perm models.Permission
				if err := tx.Where(triple).
					Attrs(models.Permission{Scope: string(grant.Scope), IsActive: true}).
					FirstOrCreate(&perm).Error; err != nil {
					return fmt.Errorf("seed grant %s %s:%s: %w", def.Name, grant.Resource, grant.Action, err)
				}
			}
		}
		return nil
	})
}

// SeedAdmin creates an active administrator account when no user with the username exists.
func SeedAdmin(db *gorm.DB, username, email string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("seed admin: username is required")
	}

	var role models.Role
	if err := db.Where("name = ?", permissions.RoleAdmin).First(&role).Error; err != nil {
		return nil, fmt.Errorf("seed admin: load role: %w", err)
	}

	var user models.User
	attrs := models.User{
		Username:    username,
		Email:       strings.TrimSpace(email),
		DisplayName: "Administrator",
		RoleID:      role.ID,
		IsActive:    true,
	}
	if err := db.Where(models.User{Username: username}).Attrs(attrs).FirstOrCreate(&user).Error; err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}
	return &user, nil
}
