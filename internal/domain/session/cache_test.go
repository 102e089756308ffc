package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glosswerks/glosswerks-api/internal/domain/auth"
)

func sess(role auth.Role) *auth.Session {
	return &auth.Session{ID: "u1", Email: "jo@shop.com", Name: "Jo", Role: role}
}

func TestCache_CommitIsIdempotent(t *testing.T) {
	c := NewCache()
	var calls int
	c.Subscribe(func(*auth.Session) { calls++ })

	assert.True(t, c.Commit(sess(auth.RoleAdmin)))
	assert.False(t, c.Commit(sess(auth.RoleAdmin)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, sess(auth.RoleAdmin), c.Current())
}

func TestCache_ChangeNotifiesWithNewValue(t *testing.T) {
	c := NewCache()
	var got []*auth.Session
	c.Subscribe(func(s *auth.Session) { got = append(got, s) })

	c.Commit(sess(auth.RoleCustomer))
	c.Commit(sess(auth.RoleEmployee))
	c.Clear()
	c.Clear()

	require.Len(t, got, 3)
	assert.Equal(t, auth.RoleCustomer, got[0].Role)
	assert.Equal(t, auth.RoleEmployee, got[1].Role)
	assert.Nil(t, got[2])
	assert.Nil(t, c.Current())
}

func TestCache_CurrentReturnsCopy(t *testing.T) {
	c := NewCache()
	in := sess(auth.RoleAdmin)
	c.Commit(in)

	in.Role = auth.RoleCustomer
	cur := c.Current()
	cur.Name = "mutated"

	assert.Equal(t, auth.RoleAdmin, c.Current().Role)
	assert.Equal(t, "Jo", c.Current().Name)
}

func TestCache_Unsubscribe(t *testing.T) {
	c := NewCache()
	var a, b int
	unsubA := c.Subscribe(func(*auth.Session) { a++ })
	c.Subscribe(func(*auth.Session) { b++ })

	c.Commit(sess(auth.RoleCustomer))
	unsubA()
	unsubA()
	c.Commit(sess(auth.RoleEmployee))

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestCache_WatchDeliversLatest(t *testing.T) {
	c := NewCache()
	ch, stop := c.Watch()

	c.Commit(sess(auth.RoleCustomer))
	c.Commit(sess(auth.RoleOwner))

	got := <-ch
	assert.Equal(t, auth.RoleOwner, got.Role)

	stop()
	_, ok := <-ch
	assert.False(t, ok)
	stop()
}

func TestCache_CloseDetachesWatchers(t *testing.T) {
	c := NewCache()
	ch, stop := c.Watch()
	c.Close()

	_, ok := <-ch
	assert.False(t, ok)
	stop()
	assert.True(t, c.Commit(sess(auth.RoleCustomer)))
}

func TestCache_ConcurrentCommitsNotifyOncePerChange(t *testing.T) {
	c := NewCache()
	var mu sync.Mutex
	var calls int
	c.Subscribe(func(*auth.Session) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Commit(sess(auth.RoleAdmin))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls)
}
