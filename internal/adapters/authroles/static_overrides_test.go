package authroles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
)

func TestStaticOverrides_RoleFor(t *testing.T) {
	o := NewStaticOverrides(
		[]string{"Owner@Glosswerks.test", " "},
		[]string{"detailer@glosswerks.test", "owner@glosswerks.test"},
	)

	tests := []struct {
		email  string
		want   domainauth.Role
		wantOK bool
	}{
		{"owner@glosswerks.test", domainauth.RoleAdmin, true},
		{" DETAILER@glosswerks.test", domainauth.RoleEmployee, true},
		{"customer@gmail.test", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			got, ok := o.RoleFor(tt.email)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
	assert.Equal(t, 2, o.Len())
}

func TestStaticOverrides_Nil(t *testing.T) {
	var o *StaticOverrides
	_, ok := o.RoleFor("a@b.c")
	assert.False(t, ok)
}
