package user_test

import (
	"testing"

	"github.com/amirasaad/bankcore/pkg/domain/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]user.Role{
		"admin":    user.RoleAdmin,
		"staff":    user.RoleStaff,
		"customer": user.RoleCustomer,
		"":         user.RoleCustomer,
	} {
		got, err := user.ParseRole(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := user.ParseRole("root")
	assert.ErrorIs(t, err, user.ErrInvalidRole)
}

func TestNewPrincipal(t *testing.T) {
	t.Parallel()
	_, err := user.NewPrincipal(uuid.Nil, user.RoleAdmin)
	assert.ErrorIs(t, err, user.ErrAnonymous)

	_, err = user.NewPrincipal(uuid.New(), user.Role("superuser"))
	assert.ErrorIs(t, err, user.ErrInvalidRole)

	p, err := user.NewPrincipal(uuid.New(), "")
	require.NoError(t, err)
	assert.Equal(t, user.RoleCustomer, p.Role)
}

func TestCapabilities(t *testing.T) {
	t.Parallel()
	owner := uuid.New()
	other := uuid.New()

	tests := []struct {
		name        string
		principal   user.Principal
		wantOperate bool
		wantManage  bool
	}{
		{"owner", user.Principal{UserID: owner, Role: user.RoleCustomer}, true, true},
		{"stranger", user.Principal{UserID: other, Role: user.RoleCustomer}, false, false},
		{"staff", user.Principal{UserID: other, Role: user.RoleStaff}, false, true},
		{"admin", user.Principal{UserID: other, Role: user.RoleAdmin}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantOperate, tt.principal.CanOperate(owner))
			assert.Equal(t, tt.wantManage, tt.principal.CanManage(owner))
		})
	}
}
