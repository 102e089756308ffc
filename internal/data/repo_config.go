package data

import "time"

// RepoConfig holds optional repository dependencies.
type RepoConfig struct {
	// Now stamps created_at/updated_at. Defaults to the UTC wall clock.
	Now func() time.Time
}

func (c RepoConfig) now() func() time.Time {
	if c.Now != nil {
		return c.Now
	}
	return func() time.Time { return time.Now().UTC() }
}
