// Package mocks provides gomock doubles for the role-resolution ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	profiles := mocks.NewMockProfileStore(ctrl)
//	profiles.EXPECT().Upsert(gomock.Any(), gomock.Any()).Times(0)
package mocks

// ProfileStore: GetByID, Upsert
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=profile_store_mock.go github.com/glosswerks/glosswerks-api/internal/ports ProfileStore

// AllowListStore: LookupRole
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=allowlist_store_mock.go github.com/glosswerks/glosswerks-api/internal/ports AllowListStore

// AllowListAdmin: Add, List, LookupRole, Remove
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=allowlist_admin_mock.go github.com/glosswerks/glosswerks-api/internal/ports AllowListAdmin

// SnapshotStore: Delete, Load, Save
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=snapshot_store_mock.go github.com/glosswerks/glosswerks-api/internal/ports SnapshotStore

// AuthProvider: Begin, Exchange, SignOut
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=auth_provider_mock.go github.com/glosswerks/glosswerks-api/internal/ports AuthProvider
