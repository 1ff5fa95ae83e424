package storage

import (
	"path/filepath"
	"testing"
	"time"

	"server-warden/internal/storagetypes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) (*Storage, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warden.json")
	s, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestGetUserAbsent(t *testing.T) {
	s, _ := newTestStorage(t)

	u, err := s.GetUser("nobody")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestCreateAndGetUser(t *testing.T) {
	s, _ := newTestStorage(t)
	joined := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	created, err := s.CreateUser(storagetypes.User{
		UserID:   "alice",
		Username: "alice",
		JoinDate: joined,
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	got, err := s.GetUser("alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)
	assert.True(t, got.JoinDate.Equal(joined))
}

func TestCreateUserKeepsExisting(t *testing.T) {
	s, _ := newTestStorage(t)

	first, err := s.CreateUser(storagetypes.User{UserID: "alice", Username: "alice", Karma: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, first.Karma)

	second, err := s.CreateUser(storagetypes.User{UserID: "alice", Username: "renamed"})
	require.NoError(t, err)
	assert.Equal(t, "alice", second.Username)
	assert.Equal(t, 5, second.Karma)
}

func TestCreateUserRequiresID(t *testing.T) {
	s, _ := newTestStorage(t)

	_, err := s.CreateUser(storagetypes.User{Username: "anon"})
	require.Error(t, err)
}

func TestUpdateUser(t *testing.T) {
	s, _ := newTestStorage(t)

	u, err := s.CreateUser(storagetypes.User{UserID: "alice", Username: "alice"})
	require.NoError(t, err)

	u.Karma = 3
	u.Level = 1
	u.Experience = 120
	require.NoError(t, s.UpdateUser(u))

	got, err := s.GetUser("alice")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Karma)
	assert.Equal(t, uint(1), got.Level)
	assert.Equal(t, uint(120), got.Experience)
}

func TestUpdateUserRequiresID(t *testing.T) {
	s, _ := newTestStorage(t)
	require.Error(t, s.UpdateUser(nil))
	require.Error(t, s.UpdateUser(&storagetypes.User{}))
}

func TestGetUserReturnsCopy(t *testing.T) {
	s, _ := newTestStorage(t)

	_, err := s.CreateUser(storagetypes.User{UserID: "alice", Username: "alice"})
	require.NoError(t, err)

	a, err := s.GetUser("alice")
	require.NoError(t, err)
	a.Karma = 99

	b, err := s.GetUser("alice")
	require.NoError(t, err)
	assert.Equal(t, 0, b.Karma, "mutating a read must not leak into the store")
}

func TestStateRoundTrip(t *testing.T) {
	s, _ := newTestStorage(t)

	state, err := s.LoadState()
	require.NoError(t, err)
	assert.Nil(t, state, "no snapshot before the first save")

	want := &storagetypes.WardenState{
		MutedUsers: map[string]storagetypes.Cooldown{
			"dodger": {ExpiresAt: time.Now().Add(72 * time.Hour).UTC()},
		},
		ThanksReminderCooldown: map[string]storagetypes.Cooldown{
			"opted-out": {Permanent: true},
		},
	}
	require.NoError(t, s.SaveState(want))

	got, err := s.LoadState()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.ThanksReminderCooldown["opted-out"].Permanent)
	assert.True(t, got.MutedUsers["dodger"].ExpiresAt.Equal(want.MutedUsers["dodger"].ExpiresAt))
}

func TestSaveStateRejectsNil(t *testing.T) {
	s, _ := newTestStorage(t)
	require.Error(t, s.SaveState(nil))
}

func TestDataSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warden.json")

	s, err := New(path)
	require.NoError(t, err)
	_, err = s.CreateUser(storagetypes.User{UserID: "alice", Username: "alice", Karma: 7})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetUser("alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 7, got.Karma)
}
