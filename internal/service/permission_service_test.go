package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/ifanfairuz/nduoseh/internal/domain"
)

func seedRole(t *testing.T, repo *fakeRoleRepo, slug string, permissions ...string) *domain.Role {
	t.Helper()
	role := &domain.Role{
		ID:          uuid.New(),
		Name:        slug,
		Slug:        slug,
		Permissions: permissions,
		Active:      true,
	}
	if err := repo.Create(context.Background(), role); err != nil {
		t.Fatalf("seed role error: %v", err)
	}
	return role
}

func TestGetPermissions_CacheMiss(t *testing.T) {
	roles := newFakeRoleRepo()
	cache := newFakePermissionCache()
	s := NewPermissionService(roles, cache, nil)
	userID := uuid.New()

	a := seedRole(t, roles, "viewer", "users.read", "roles.read")
	b := seedRole(t, roles, "editor", "users.read", "users.update")
	_ = roles.AssignToUser(context.Background(), userID, a.ID)
	_ = roles.AssignToUser(context.Background(), userID, b.ID)

	perms, err := s.GetPermissions(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetPermissions error: %v", err)
	}

	want := []string{"roles.read", "users.read", "users.update"}
	if !reflect.DeepEqual(perms, want) {
		t.Fatalf("got %v, want %v", perms, want)
	}

	if !cache.has(userID) {
		t.Fatalf("miss must populate the cache")
	}
}

func TestGetPermissions_CacheHit(t *testing.T) {
	roles := newFakeRoleRepo()
	cache := newFakePermissionCache()
	s := NewPermissionService(roles, cache, nil)
	userID := uuid.New()

	cache.put(userID, []string{"cached.permission"})

	perms, err := s.GetPermissions(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetPermissions error: %v", err)
	}
	if !reflect.DeepEqual(perms, []string{"cached.permission"}) {
		t.Fatalf("expected the cached set, got %v", perms)
	}
}

func TestGetPermissions_FailOpenOnCacheError(t *testing.T) {
	roles := newFakeRoleRepo()
	cache := newFakePermissionCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")
	s := NewPermissionService(roles, cache, nil)
	userID := uuid.New()

	role := seedRole(t, roles, "viewer", "users.read")
	_ = roles.AssignToUser(context.Background(), userID, role.ID)

	perms, err := s.GetPermissions(context.Background(), userID)
	if err != nil {
		t.Fatalf("cache failure must not deny access: %v", err)
	}
	if !reflect.DeepEqual(perms, []string{"users.read"}) {
		t.Fatalf("got %v, want [users.read]", perms)
	}
}

func TestGetPermissions_InactiveRoleExcluded(t *testing.T) {
	roles := newFakeRoleRepo()
	cache := newFakePermissionCache()
	s := NewPermissionService(roles, cache, nil)
	userID := uuid.New()

	active := seedRole(t, roles, "viewer", "users.read")
	inactive := seedRole(t, roles, "old", "settings.update")
	inactive.Active = false
	_ = roles.Update(context.Background(), inactive)
	_ = roles.AssignToUser(context.Background(), userID, active.ID)
	_ = roles.AssignToUser(context.Background(), userID, inactive.ID)

	perms, err := s.GetPermissions(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetPermissions error: %v", err)
	}
	if !reflect.DeepEqual(perms, []string{"users.read"}) {
		t.Fatalf("inactive role leaked permissions: %v", perms)
	}
}

func TestGetInfo_ModuleDerivation(t *testing.T) {
	roles := newFakeRoleRepo()
	cache := newFakePermissionCache()
	s := NewPermissionService(roles, cache, nil)
	userID := uuid.New()

	role := seedRole(t, roles, "staff", "users.read", "reports.export")
	_ = roles.AssignToUser(context.Background(), userID, role.ID)

	info, err := s.GetInfo(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetInfo error: %v", err)
	}
	if !reflect.DeepEqual(info.Modules, []string{"reports", "users"}) {
		t.Fatalf("got modules %v, want [reports users]", info.Modules)
	}
}

func TestHasPermissions(t *testing.T) {
	roles := newFakeRoleRepo()
	cache := newFakePermissionCache()
	s := NewPermissionService(roles, cache, nil)
	userID := uuid.New()

	role := seedRole(t, roles, "viewer", "users.read", "roles.read")
	_ = roles.AssignToUser(context.Background(), userID, role.ID)

	ok, err := s.HasPermissions(context.Background(), userID, []string{"users.read", "roles.read"})
	if err != nil || !ok {
		t.Fatalf("expected allowed, got ok=%v err=%v", ok, err)
	}

	ok, err = s.HasPermissions(context.Background(), userID, []string{"users.read", "users.delete"})
	if err != nil {
		t.Fatalf("HasPermissions error: %v", err)
	}
	if ok {
		t.Fatalf("missing permission must deny")
	}

	ok, err = s.HasPermissions(context.Background(), userID, nil)
	if err != nil || !ok {
		t.Fatalf("empty requirement must allow, got ok=%v err=%v", ok, err)
	}
}

func TestValidatePermissions(t *testing.T) {
	s := NewPermissionService(newFakeRoleRepo(), newFakePermissionCache(), nil)

	if err := s.ValidatePermissions([]string{"users.read", "roles.assign"}); err != nil {
		t.Fatalf("catalogue permissions must validate: %v", err)
	}

	err := s.ValidatePermissions([]string{"users.read", "made.up"})
	var invalid *InvalidPermissionsError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidPermissionsError, got %v", err)
	}
	if !reflect.DeepEqual(invalid.Permissions, []string{"made.up"}) {
		t.Fatalf("got %v, want [made.up]", invalid.Permissions)
	}
}
