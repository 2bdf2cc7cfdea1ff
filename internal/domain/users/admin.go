package users

import (
	"context"
	"fmt"

	"github.com/amu-events/server/internal/audit"
)

// AdminService wraps the user-management operations reserved for admins.
// Every mutation is audit-logged with the acting admin's id.
type AdminService struct {
	repo  Repository
	audit *audit.Logger
}

func NewAdminService(repo Repository, auditLogger *audit.Logger) *AdminService {
	return &AdminService{repo: repo, audit: auditLogger}
}

// ListUsers returns all accounts with derived activity counts. Password
// hashes are never included.
func (s *AdminService) ListUsers(ctx context.Context) ([]AdminUser, error) {
	return s.repo.List(ctx)
}

// DeleteUser removes the target account and cascades its registrations and
// created events. Admins cannot delete themselves.
func (s *AdminService) DeleteUser(ctx context.Context, id, actingAdminID string) error {
	if id == actingAdminID {
		return ErrSelfDelete
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.audit.Record(ctx, audit.Entry{
		Action:     "user.deleted",
		ActorID:    actingAdminID,
		TargetType: "user",
		TargetID:   id,
		Details:    map[string]string{"email": user.Email},
	})
	return nil
}

// ToggleBlock flips the blocked flag and returns the new state.
func (s *AdminService) ToggleBlock(ctx context.Context, id, actingAdminID string) (bool, error) {
	if id == actingAdminID {
		return false, ErrSelfBlock
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}

	blocked := !user.IsBlocked
	if err := s.repo.SetBlocked(ctx, id, blocked); err != nil {
		return false, fmt.Errorf("set blocked: %w", err)
	}

	action := "user.unblocked"
	if blocked {
		action = "user.blocked"
	}
	s.audit.Record(ctx, audit.Entry{
		Action:     action,
		ActorID:    actingAdminID,
		TargetType: "user",
		TargetID:   id,
		Details:    map[string]string{"email": user.Email},
	})
	return blocked, nil
}

// ChangeRole sets the target's role. An admin cannot demote themselves.
func (s *AdminService) ChangeRole(ctx context.Context, id, newRole, actingAdminID string) error {
	if !ValidRole(newRole) {
		return ErrInvalidRole
	}
	if id == actingAdminID && newRole != RoleAdmin {
		return ErrSelfDemote
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.SetRole(ctx, id, newRole); err != nil {
		return fmt.Errorf("set role: %w", err)
	}

	s.audit.Record(ctx, audit.Entry{
		Action:     "user.role_changed",
		ActorID:    actingAdminID,
		TargetType: "user",
		TargetID:   id,
		Details:    map[string]string{"email": user.Email, "from": user.Role, "to": newRole},
	})
	return nil
}
