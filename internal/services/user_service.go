package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qualitrack/qualitrack/internal/models"
	apperrors "github.com/qualitrack/qualitrack/pkg/errors"
	"github.com/qualitrack/qualitrack/pkg/logger"
)

// CreateUserInput describes the fields accepted when creating a user.
type CreateUserInput struct {
	Username    string `json:"username" validate:"required,max=128"`
	Email       string `json:"email" validate:"omitempty,email"`
	DisplayName string `json:"display_name"`
	RoleID      uint   `json:"role_id" validate:"required"`
	TeamID      *uint  `json:"team_id"`
}

// UserService manages the identity attributes that drive authorization: role, team
// membership and activation. Every change drops the user's cached permission set.
type UserService struct {
	db          *gorm.DB
	invalidator PermissionInvalidator
	log         *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, invalidator PermissionInvalidator) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{
		db:          db,
		invalidator: invalidatorOrNop(invalidator),
		log:         logger.WithModule("user_service"),
	}, nil
}

// Create provisions an active user bound to an existing role.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, apperrors.NewBadRequest("username is required")
	}
	if _, err := s.activeRole(ctx, input.RoleID); err != nil {
		return nil, err
	}

	user := &models.User{
		Username:    username,
		Email:       strings.TrimSpace(input.Email),
		DisplayName: strings.TrimSpace(input.DisplayName),
		RoleID:      input.RoleID,
		TeamID:      input.TeamID,
		IsActive:    true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		switch {
		case isUniqueConstraintError(err):
			return nil, apperrors.NewBadRequest("username already exists")
		case isForeignKeyError(err):
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}
	return user, nil
}

// GetByID loads a user with role and team.
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Preload("Role").Preload("Team").First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	return &user, nil
}

// AssignRole moves the user to another role.
func (s *UserService) AssignRole(ctx context.Context, userID, roleID uint) (*models.User, error) {

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	role, err := s.activeRole(ctx, roleID)
	if err != nil {
		return nil, err
	}

	if user.RoleID != roleID {
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("role_id", roleID).Error; err != nil {
			return nil, fmt.Errorf("user service: assign role: %w", err)
		}
		s.log.Info("user role changed",
			zap.Uint("user_id", userID),
			zap.Uint("from_role_id", user.RoleID),
			zap.Uint("to_role_id", roleID),
		)
	}
	s.invalidator.Invalidate(userID)

	user.RoleID = roleID
	user.Role = role
	return user, nil
}

// SetActive activates or deactivates the user. Inactive users are denied every check.
func (s *UserService) SetActive(ctx context.Context, userID uint, active bool) error {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", active).Error; err != nil {
		return fmt.Errorf("user service: update active state: %w", err)
	}
	s.invalidator.Invalidate(userID)

	s.log.Info("user state changed", zap.Uint("user_id", userID), zap.Bool("active", active))
	return nil
}

func (s *UserService) activeRole(ctx context.Context, roleID uint) (*models.Role, error) {
	var role models.Role
	err := s.db.WithContext(ctx).First(&role, roleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load role: %w", err)
	}
	if !role.IsActive {
		return nil, ErrRoleInactive
	}
	return &role, nil
}
