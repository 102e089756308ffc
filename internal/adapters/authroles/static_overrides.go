// Package authroles provides the operator-configured static role overrides.
package authroles

import (
	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	"github.com/glosswerks/glosswerks-api/internal/ports"
)

var _ ports.OverrideSource = (*StaticOverrides)(nil)

// StaticOverrides maps configured emails to admin or employee.
// An email on both lists resolves to admin.
type StaticOverrides struct {
	admins    map[string]struct{}
	employees map[string]struct{}
}

// NewStaticOverrides builds the lookup from the configured email lists.
func NewStaticOverrides(adminEmails, employeeEmails []string) *StaticOverrides {
	return &StaticOverrides{
		admins:    toSet(adminEmails),
		employees: toSet(employeeEmails),
	}
}

// RoleFor returns the override role for email, if any.
func (s *StaticOverrides) RoleFor(email string) (domainauth.Role, bool) {
	if s == nil {
		return "", false
	}
	email = domainauth.NormalizeEmail(email)
	if _, ok := s.admins[email]; ok {
		return domainauth.RoleAdmin, true
	}
	if _, ok := s.employees[email]; ok {
		return domainauth.RoleEmployee, true
	}
	return "", false
}

// Len returns how many distinct emails carry an override.
func (s *StaticOverrides) Len() int {
	n := len(s.admins)
	for e := range s.employees {
		if _, dup := s.admins[e]; !dup {
			n++
		}
	}
	return n
}

func toSet(emails []string) map[string]struct{} {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = domainauth.NormalizeEmail(e); e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}
