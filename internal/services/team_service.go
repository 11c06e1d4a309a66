package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/qualitrack/qualitrack/internal/models"
	apperrors "github.com/qualitrack/qualitrack/pkg/errors"
)

// CreateTeamInput captures new team metadata.
type CreateTeamInput struct {
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description"`
}

// TeamService handles teams and the single-team membership of users. Team membership
// decides team-scoped access, so membership changes drop the member's cached set.
type TeamService struct {
	db          *gorm.DB
	invalidator PermissionInvalidator
}

// NewTeamService constructs a TeamService instance.
func NewTeamService(db *gorm.DB, invalidator PermissionInvalidator) (*TeamService, error) {
	if db == nil {
		return nil, errors.New("team service: db is required")
	}
	return &TeamService{db: db, invalidator: invalidatorOrNop(invalidator)}, nil
}

// Create registers a new team.
func (s *TeamService) Create(ctx context.Context, input CreateTeamInput) (*models.Team, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("team name is required")
	}

	team := &models.Team{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
	}
	if err := s.db.WithContext(ctx).Create(team).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("team name already exists")
		}
		return nil, fmt.Errorf("team service: create team: %w", err)
	}
	return team, nil
}

// List returns all teams ordered by name.
func (s *TeamService) List(ctx context.Context) ([]models.Team, error) {
	ctx = ensureContext(ctx)

	var teams []models.Team
	if err := s.db.WithContext(ctx).Order("name").Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("team service: list teams: %w", err)
	}
	return teams, nil
}

// AddMember moves the user into the team, replacing any previous membership.
func (s *TeamService) AddMember(ctx context.Context, teamID, userID uint) error {
	ctx = ensureContext(ctx)

	var team models.Team
	if err := s.db.WithContext(ctx).First(&team, teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("team service: load team: %w", err)
	}

	return s.setTeam(ctx, userID, &team.ID)
}

// RemoveMember clears the user's team when it matches teamID.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, userID uint) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND team_id = ?", userID, teamID).
		Update("team_id", nil)
	if result.Error != nil {
		return fmt.Errorf("team service: remove member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTeamMemberNotFound
	}
	s.invalidator.Invalidate(userID)
	return nil
}

func (s *TeamService) setTeam(ctx context.Context, userID uint, teamID *uint) error {
	var user models.User
	if err := s.db.WithContext(ctx).Select("id").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("team service: load user: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&user).Update("team_id", teamID).Error; err != nil {
		return fmt.Errorf("team service: update membership: %w", err)
	}
	s.invalidator.Invalidate(userID)
	return nil
}
