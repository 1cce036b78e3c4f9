package session_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dori/taskdeck/internal/api"
	"github.com/dori/taskdeck/internal/api/apitest"
	"github.com/dori/taskdeck/internal/db"
	"github.com/dori/taskdeck/internal/model"
	"github.com/dori/taskdeck/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	data    map[string]string
	failSet bool
	failDel bool
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (m *memStore) Get(key string) (string, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(key, value string) error {
	if m.failSet {
		return errors.New("disk full")
	}
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(key string) error {
	if m.failDel {
		return errors.New("disk full")
	}
	delete(m.data, key)
	return nil
}

type fakeAuth struct {
	resp model.LoginResponse
	err  error
}

func (f fakeAuth) Login(context.Context, model.Credentials) (model.LoginResponse, error) {
	return f.resp, f.err
}

// assertLockstep checks the isAuthenticated ⇔ stored token invariant
func assertLockstep(t *testing.T, s *session.Session, store *memStore) {
	t.Helper()
	stored, ok := store.data[session.TokenKey]
	assert.Equal(t, ok && stored != "", s.IsAuthenticated())
	assert.Equal(t, stored, s.Token())
}

func TestNewSeedsFromStore(t *testing.T) {
	store := newMemStore()
	s, err := session.New(store, nil)
	require.NoError(t, err)
	assert.False(t, s.IsAuthenticated())
	assertLockstep(t, s, store)

	store.data[session.TokenKey] = "persisted"
	s, err = session.New(store, nil)
	require.NoError(t, err)
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "persisted", s.Token())
}

func TestLoginStoresToken(t *testing.T) {
	store := newMemStore()
	s, err := session.New(store, fakeAuth{resp: model.LoginResponse{Token: "tok"}})
	require.NoError(t, err)

	var transitions []bool
	s.OnChange(func(authed bool) { transitions = append(transitions, authed) })

	require.NoError(t, s.Login(context.Background(), model.Credentials{Username: "u", Password: "p"}))
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "tok", store.data[session.TokenKey])
	assertLockstep(t, s, store)

	require.NoError(t, s.Logout())
	assert.False(t, s.IsAuthenticated())
	_, ok := store.data[session.TokenKey]
	assert.False(t, ok)
	assertLockstep(t, s, store)

	assert.Equal(t, []bool{true, false}, transitions)
}

func TestLoginFailureLeavesSessionUnchanged(t *testing.T) {
	store := newMemStore()
	loginErr := errors.New("bad credentials")
	s, err := session.New(store, fakeAuth{err: loginErr})
	require.NoError(t, err)

	err = s.Login(context.Background(), model.Credentials{})
	assert.ErrorIs(t, err, loginErr)
	assert.False(t, s.IsAuthenticated())
	assertLockstep(t, s, store)
}

func TestLoginEmptyTokenIsError(t *testing.T) {
	store := newMemStore()
	s, err := session.New(store, fakeAuth{resp: model.LoginResponse{Message: "ok"}})
	require.NoError(t, err)

	err = s.Login(context.Background(), model.Credentials{})
	assert.ErrorIs(t, err, session.ErrEmptyToken)
	assert.False(t, s.IsAuthenticated())
}

func TestStorageFailureKeepsLockstep(t *testing.T) {
	store := newMemStore()
	s, err := session.New(store, fakeAuth{resp: model.LoginResponse{Token: "tok"}})
	require.NoError(t, err)

	store.failSet = true
	require.Error(t, s.Login(context.Background(), model.Credentials{}))
	assert.False(t, s.IsAuthenticated())
	assertLockstep(t, s, store)

	store.failSet = false
	require.NoError(t, s.Login(context.Background(), model.Credentials{}))

	store.failDel = true
	require.Error(t, s.Logout())
	assert.True(t, s.IsAuthenticated())
	assertLockstep(t, s, store)
}

func TestLogoutWhenLoggedOut(t *testing.T) {
	store := newMemStore()
	s, err := session.New(store, nil)
	require.NoError(t, err)
	require.NoError(t, s.Logout())
	assert.False(t, s.IsAuthenticated())
}

// TestSessionAgainstAPIAndSQLite runs the full login path against the fake
// API and the sqlite store, then reopens the store to simulate a restart.
func TestSessionAgainstAPIAndSQLite(t *testing.T) {
	srv := apitest.NewServer(t)
	path := filepath.Join(t.TempDir(), "taskdeck.db")

	store, err := db.Open(path)
	require.NoError(t, err)

	s, err := session.New(store, nil)
	require.NoError(t, err)
	client := api.New(srv.URL, api.WithTokenSource(s))
	s.SetAuthenticator(client)

	_, err = client.ListTasks(context.Background())
	assert.ErrorIs(t, err, api.ErrUnauthorized)

	err = s.Login(context.Background(), model.Credentials{Username: "admin", Password: "nope"})
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.False(t, s.IsAuthenticated())

	require.NoError(t, s.Login(context.Background(), model.Credentials{Username: apitest.Username, Password: apitest.Password}))
	_, err = client.ListTasks(context.Background())
	require.NoError(t, err)
	token := s.Token()
	require.NoError(t, store.Close())

	store, err = db.Open(path)
	require.NoError(t, err)
	defer store.Close()

	reloaded, err := session.New(store, client)
	require.NoError(t, err)
	assert.True(t, reloaded.IsAuthenticated())
	assert.Equal(t, token, reloaded.Token())

	require.NoError(t, reloaded.Logout())
	reloaded, err = session.New(store, client)
	require.NoError(t, err)
	assert.False(t, reloaded.IsAuthenticated())
}
