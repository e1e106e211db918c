package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoleCapabilities(t *testing.T) {
	require.True(t, ViewerRole.Can(CapViewProject))
	require.False(t, ViewerRole.Can(CapCreateTask))

	require.True(t, DeveloperRole.Can(CapCreateTask|CapEditTask))
	require.True(t, DeveloperRole.Can(CapRecordExpense))
	require.False(t, DeveloperRole.Can(CapDeleteTask))
	require.False(t, DeveloperRole.Can(CapPurgeTask))
	require.False(t, DeveloperRole.Can(CapApproveExpense))
	require.False(t, DeveloperRole.Can(CapManageSprint))

	require.True(t, ScrumMasterRole.Can(CapManageSprint|CapManageBacklog))
	require.True(t, ScrumMasterRole.Can(CapDeleteTask))
	require.False(t, ScrumMasterRole.Can(CapManageBudget))
	require.False(t, ScrumMasterRole.Can(CapApproveExpense))
	require.False(t, ScrumMasterRole.Can(CapPurgeTask))

	require.True(t, ProductOwnerRole.Can(CapManageBudget|CapApproveExpense))
	require.False(t, ProductOwnerRole.Can(CapPurgeTask))
	require.False(t, ProductOwnerRole.Can(CapManageUsers))

	require.True(t, AdminRole.Can(CapPurgeTask))
	require.True(t, AdminRole.Can(CapManageUsers|CapManageClients|CapManageProject))
}

func TestRoleOrdering(t *testing.T) {
	require.True(t, ViewerRole < DeveloperRole)
	require.True(t, DeveloperRole < ScrumMasterRole)
	require.True(t, ScrumMasterRole < ProductOwnerRole)
	require.True(t, ProductOwnerRole < AdminRole)
}

func TestRoleJSON(t *testing.T) {
	b, err := json.Marshal(ScrumMasterRole)
	require.NoError(t, err)
	require.Equal(t, `"Scrum Master"`, string(b))

	var role Role
	require.NoError(t, json.Unmarshal([]byte(`"Product Owner"`), &role))
	require.Equal(t, ProductOwnerRole, role)

	require.Error(t, json.Unmarshal([]byte(`"Overlord"`), &role))
}

func TestRoleFromString(t *testing.T) {
	role, ok := RoleFromString("Admin")
	require.True(t, ok)
	require.Equal(t, AdminRole, role)

	_, ok = RoleFromString("admin")
	require.False(t, ok)

	require.False(t, Role(7).Valid())
	require.Equal(t, "Role(7)", Role(7).String())
}

func TestDependencyTypeInverse(t *testing.T) {
	require.Equal(t, DepIsBlockedBy, DepBlocks.Inverse())
	require.Equal(t, DepBlocks, DepIsBlockedBy.Inverse())
	require.Equal(t, DepIsDuplicatedBy, DepDuplicates.Inverse())
	require.Equal(t, DepRelatesTo, DepRelatesTo.Inverse())
}

func TestStatusValidation(t *testing.T) {
	require.True(t, SprintPlanning.Valid())
	require.False(t, SprintStatus("Archived").Valid())

	require.True(t, StoryDone.Valid())
	require.False(t, StoryStatus("Cancelled").Valid())

	require.True(t, TaskCreated.Valid())
	require.False(t, TaskStatus("Backlog").Valid())

	require.True(t, ExpensePending.Valid())
	require.False(t, ExpenseStatus("Paid").Valid())
}

func TestTargetDate(t *testing.T) {
	var d TargetDate
	require.NoError(t, json.Unmarshal([]byte(`"2026-09-01"`), &d))

	b, err := json.Marshal(d)
	require.NoError(t, err)
	require.Equal(t, `"2026-09-01"`, string(b))

	require.Error(t, json.Unmarshal([]byte(`"01.09.2026"`), &d))
}
