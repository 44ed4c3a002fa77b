package service

import (
	"context"
	"log"
	"sort"

	"github.com/google/uuid"

	"github.com/ifanfairuz/nduoseh/internal/repository"
)

// DefaultModulePermissions maps each feature module to the permissions that
// enable it. A module shows up in a user's module list when the user holds at
// least one of its permissions.
var DefaultModulePermissions = map[string][]string{
	"users": {
		"users.read", "users.create", "users.update", "users.delete",
	},
	"roles": {
		"roles.read", "roles.create", "roles.update", "roles.delete",
		"roles.assign",
	},
	"reports": {
		"reports.read", "reports.export",
	},
	"settings": {
		"settings.read", "settings.update",
	},
}

// PermissionInfo is a user's effective permission set plus the feature
// modules those permissions enable.
type PermissionInfo struct {
	Permissions []string `json:"permissions"`
	Modules     []string `json:"modules"`
}

// PermissionService resolves a user's effective permissions from their role
// assignments, cache-aside over the permission cache.
type PermissionService struct {
	roles             repository.RoleRepository
	cache             repository.PermissionCache
	modulePermissions map[string][]string
}

func NewPermissionService(roles repository.RoleRepository, cache repository.PermissionCache, modulePermissions map[string][]string) *PermissionService {
	if modulePermissions == nil {
		modulePermissions = DefaultModulePermissions
	}
	return &PermissionService{
		roles:             roles,
		cache:             cache,
		modulePermissions: modulePermissions,
	}
}

// GetPermissions returns the union of permissions across the user's active
// roles. Cache errors fail open: the set is recomputed from storage and the
// request proceeds.
func (s *PermissionService) GetPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	cached, err := s.cache.Get(ctx, userID)
	if err != nil {
		log.Printf("[PERM] cache read failed for user %s, recomputing: %v", userID, err)
	} else if cached != nil {
		return cached, nil
	}

	roles, err := s.roles.GetUserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	permissions := []string{}
	for _, role := range roles {
		for _, p := range role.Permissions {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			permissions = append(permissions, p)
		}
	}
	sort.Strings(permissions)

	if err := s.cache.Set(ctx, userID, permissions); err != nil {
		log.Printf("[PERM] cache write failed for user %s: %v", userID, err)
	}

	return permissions, nil
}

// GetInfo resolves permissions and derives the enabled feature modules.
func (s *PermissionService) GetInfo(ctx context.Context, userID uuid.UUID) (*PermissionInfo, error) {
	permissions, err := s.GetPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &PermissionInfo{
		Permissions: permissions,
		Modules:     s.modulesFor(permissions),
	}, nil
}

// HasPermissions reports whether the user holds every required permission.
func (s *PermissionService) HasPermissions(ctx context.Context, userID uuid.UUID, required []string) (bool, error) {
	if len(required) == 0 {
		return true, nil
	}

	permissions, err := s.GetPermissions(ctx, userID)
	if err != nil {
		return false, err
	}

	held := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		held[p] = struct{}{}
	}
	for _, p := range required {
		if _, ok := held[p]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// AvailablePermissions lists the full configured catalogue, sorted.
func (s *PermissionService) AvailablePermissions() []string {
	var all []string
	for _, perms := range s.modulePermissions {
		all = append(all, perms...)
	}
	sort.Strings(all)
	return all
}

// ValidatePermissions rejects permission names outside the catalogue.
func (s *PermissionService) ValidatePermissions(permissions []string) error {
	known := make(map[string]struct{})
	for _, perms := range s.modulePermissions {
		for _, p := range perms {
			known[p] = struct{}{}
		}
	}

	var invalid []string
	for _, p := range permissions {
		if _, ok := known[p]; !ok {
			invalid = append(invalid, p)
		}
	}
	if len(invalid) > 0 {
		return &InvalidPermissionsError{Permissions: invalid}
	}
	return nil
}

func (s *PermissionService) modulesFor(permissions []string) []string {
	held := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		held[p] = struct{}{}
	}

	modules := []string{}
	for module, perms := range s.modulePermissions {
		for _, p := range perms {
			if _, ok := held[p]; ok {
				modules = append(modules, module)
				break
			}
		}
	}
	sort.Strings(modules)
	return modules
}
