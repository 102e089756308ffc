package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in     string
		want   Role
		wantOK bool
	}{
		{"customer", RoleCustomer, true},
		{" Admin ", RoleAdmin, true},
		{"OWNER", RoleOwner, true},
		{"employee", RoleEmployee, true},
		{"guest", "", false},
		{"superuser", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRole(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestRole_Privilege(t *testing.T) {
	assert.False(t, RoleGuest.IsPrivileged())
	assert.False(t, RoleCustomer.IsPrivileged())
	assert.True(t, RoleEmployee.IsPrivileged())
	assert.True(t, RoleAdmin.IsPrivileged())
	assert.True(t, RoleOwner.IsPrivileged())

	assert.True(t, RoleOwner.AtLeast(RoleAdmin))
	assert.True(t, RoleEmployee.AtLeast(RoleCustomer))
	assert.False(t, RoleCustomer.AtLeast(RoleEmployee))
	assert.False(t, Role("bogus").AtLeast(RoleGuest))
}

func TestSession_Equal(t *testing.T) {
	a := &Session{ID: "u1", Email: "a@x.io", Name: "A", Role: RoleAdmin}
	b := &Session{ID: "u1", Email: "a@x.io", Name: "A", Role: RoleAdmin}
	c := &Session{ID: "u1", Email: "a@x.io", Name: "A", Role: RoleCustomer}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
	assert.True(t, (*Session)(nil).Equal(nil))
}

func TestSession_For(t *testing.T) {
	s := &Session{ID: "u1", Role: RoleAdmin}
	assert.Same(t, s, s.For(Identity{SubjectID: "u1"}))
	assert.Nil(t, s.For(Identity{SubjectID: "u2"}))
	assert.Nil(t, (*Session)(nil).For(Identity{SubjectID: "u1"}))
}

func TestIdentity_Normalize(t *testing.T) {
	id := Identity{SubjectID: " u1 ", Email: " Jo@Shop.COM ", DisplayNameHint: " Jo "}.Normalize()
	assert.Equal(t, Identity{SubjectID: "u1", Email: "jo@shop.com", DisplayNameHint: "Jo"}, id)
	assert.Equal(t, "u1|jo@shop.com", id.Key())
}

func TestDisplayName(t *testing.T) {
	id := Identity{SubjectID: "u1", Email: "jo@shop.com", DisplayNameHint: "Jo Hint"}

	assert.Equal(t, "Jo Profile", DisplayName(&ProfileRecord{Name: "Jo Profile"}, id))
	assert.Equal(t, "Jo Hint", DisplayName(&ProfileRecord{Name: "  "}, id))
	assert.Equal(t, "Jo Hint", DisplayName(nil, id))
	assert.Equal(t, "jo", DisplayName(nil, Identity{Email: "jo@shop.com"}))
}

func TestEventType_TriggersResolution(t *testing.T) {
	assert.True(t, EventSignedIn.TriggersResolution())
	assert.True(t, EventTokenRefreshed.TriggersResolution())
	assert.True(t, EventInitialSession.TriggersResolution())
	assert.False(t, EventSignedOut.TriggersResolution())
}
