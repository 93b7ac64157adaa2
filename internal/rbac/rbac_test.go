package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCan(t *testing.T) {
	allActions := []Capability{CapCreate, CapEdit, CapApprove, CapDelete, CapManageUsers, CapView}

	expected := map[Role]map[Capability]bool{
		RoleAdmin:    {CapCreate: true, CapEdit: true, CapApprove: true, CapDelete: true, CapManageUsers: true},
		RoleEditor:   {CapCreate: true, CapEdit: true, CapDelete: true},
		RoleApprover: {CapCreate: true, CapEdit: true, CapApprove: true, CapDelete: true},
		RoleViewer:   {CapView: true},
	}

	for role, grants := range expected {
		for _, action := range allActions {
			assert.Equalf(t, grants[action], Can(role, action), "role=%s action=%s", role, action)
		}
	}
}

func TestCanUnknownRoleDeniesEverything(t *testing.T) {
	for _, role := range []Role{"", "superuser", "ADMIN", "owner"} {
		for _, action := range []Capability{CapCreate, CapEdit, CapApprove, CapDelete, CapManageUsers, CapView} {
			assert.Falsef(t, Can(role, action), "role=%q action=%s should deny", role, action)
		}
	}
}

func TestCanUnknownActionDenied(t *testing.T) {
	assert.False(t, Can(RoleAdmin, "drop_tables"))
	assert.False(t, Can(RoleAdmin, ""))
}

func TestCapabilities(t *testing.T) {
	assert.ElementsMatch(t,
		[]Capability{CapCreate, CapEdit, CapApprove, CapDelete, CapManageUsers},
		Capabilities(RoleAdmin))
	assert.Nil(t, Capabilities("nobody"))

	// mutating the returned slice must not poison the table
	caps := Capabilities(RoleViewer)
	caps[0] = CapDelete
	assert.False(t, Can(RoleViewer, CapDelete))
}

func TestValid(t *testing.T) {
	for _, role := range Roles() {
		assert.True(t, Valid(role))
	}
	assert.False(t, Valid("manager"))
	assert.False(t, Valid(""))
}
