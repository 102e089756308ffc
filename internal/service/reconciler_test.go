package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	"github.com/glosswerks/glosswerks-api/internal/mocks"
)

func TestSafeToWrite(t *testing.T) {
	tests := []struct {
		name string
		res  domainauth.Resolution
		want bool
	}{
		{name: "override", res: domainauth.Resolution{Role: domainauth.RoleCustomer, OverrideApplied: true}, want: true},
		{name: "profile row exists", res: domainauth.Resolution{Role: domainauth.RoleCustomer, ProfileExists: true}, want: true},
		{name: "privileged role", res: domainauth.Resolution{Role: domainauth.RoleEmployee}, want: true},
		{name: "privileged role kept from cache", res: domainauth.Resolution{Role: domainauth.RoleAdmin, Source: domainauth.SourceCached, NonRegression: true}, want: false},
		{name: "default customer with unknown remote state", res: domainauth.Resolution{Role: domainauth.RoleCustomer, Source: domainauth.SourceDefault}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeToWrite(tt.res))
		})
	}
}

func TestReconciler_Reconcile(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	id := domainauth.Identity{SubjectID: "sub-1", Email: "jo@glosswerks.test"}
	existing := &domainauth.ProfileRecord{ID: "sub-1", Email: "jo@glosswerks.test", Role: "customer", Name: "Jo"}

	tests := []struct {
		name  string
		in    ReconcileInput
		setup func(p *mocks.MockProfileStore)
		want  WriteOutcome
	}{
		{
			name: "skips when remote state is unknown",
			in: ReconcileInput{
				Identity:   id,
				Resolution: domainauth.Resolution{Role: domainauth.RoleCustomer, Source: domainauth.SourceDefault},
				Name:       "jo",
			},
			want: WriteSkipped,
		},
		{
			name: "skips role kept from cache while signals are absent",
			in: ReconcileInput{
				Identity:   id,
				Resolution: domainauth.Resolution{Role: domainauth.RoleAdmin, Source: domainauth.SourceCached, NonRegression: true},
				Name:       "jo",
			},
			want: WriteSkipped,
		},
		{
			name: "leaves matching profile alone",
			in: ReconcileInput{
				Identity:   id,
				Resolution: domainauth.Resolution{Role: domainauth.RoleCustomer, Source: domainauth.SourceProfile, ProfileExists: true},
				Name:       "Jo",
				Existing:   existing,
			},
			want: WriteUnchanged,
		},
		{
			name: "writes promoted role",
			in: ReconcileInput{
				Identity:   id,
				Resolution: domainauth.Resolution{Role: domainauth.RoleAdmin, Source: domainauth.SourceStatic, OverrideApplied: true, ProfileExists: true},
				Name:       "Jo",
				Existing:   existing,
			},
			setup: func(p *mocks.MockProfileStore) {
				p.EXPECT().Upsert(gomock.Any(), domainauth.ProfileRecord{
					ID: "sub-1", Email: "jo@glosswerks.test", Role: "admin", Name: "Jo", UpdatedAt: fixed,
				}).Return(nil)
			},
			want: WriteApplied,
		},
		{
			name: "reports store failure",
			in: ReconcileInput{
				Identity:   id,
				Resolution: domainauth.Resolution{Role: domainauth.RoleEmployee, Source: domainauth.SourceAllowList},
				Name:       "jo",
			},
			setup: func(p *mocks.MockProfileStore) {
				p.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))
			},
			want: WriteFailed,
		},
		{
			name: "bounds a hanging write",
			in: ReconcileInput{
				Identity:   id,
				Resolution: domainauth.Resolution{Role: domainauth.RoleOwner, Source: domainauth.SourceStatic, OverrideApplied: true},
				Name:       "jo",
			},
			setup: func(p *mocks.MockProfileStore) {
				p.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(
					func(ctx context.Context, _ domainauth.ProfileRecord) error {
						<-ctx.Done()
						return ctx.Err()
					})
			},
			want: WriteFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			profiles := mocks.NewMockProfileStore(ctrl)
			if tt.setup != nil {
				tt.setup(profiles)
			}

			r := NewReconciler(ReconcilerOptions{
				Profiles: profiles,
				Config:   testConfig(),
				Logger:   quietLogger(),
				Metrics:  testRecorder(),
			})
			r.now = func() time.Time { return fixed }

			assert.Equal(t, tt.want, r.Reconcile(context.Background(), tt.in))
		})
	}
}
