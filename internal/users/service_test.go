package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtauto/dtauto/internal/shared"
)

type memoryUserRepo struct {
	users  map[int64]User
	nextID int64
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int64]User), nextID: 1}
}

func (m *memoryUserRepo) ListUsers(context.Context) ([]User, error) {
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memoryUserRepo) GetUser(_ context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *memoryUserRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			copied := u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memoryUserRepo) InsertUser(_ context.Context, u User) (*User, error) {
	u.ID = m.nextID
	m.nextID++
	m.users[u.ID] = u
	return &u, nil
}

func (m *memoryUserRepo) UpdateUser(_ context.Context, u User) error {
	stored, ok := m.users[u.ID]
	if !ok {
		return shared.ErrNotFound
	}
	stored.Name = u.Name
	m.users[u.ID] = stored
	return nil
}

func (m *memoryUserRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func (m *memoryUserRepo) SetActive(_ context.Context, id int64, active bool) error {
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.IsActive = active
	m.users[id] = u
	return nil
}

func TestCreateHashesPassword(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo, nil, nil)

	created, err := svc.Create(context.Background(), CreateInput{
		Email:    "dominick@dtauto.example",
		Name:     "Dominick",
		Partner:  "dominick",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	require.True(t, created.IsActive)
	require.NotEqual(t, "correct horse battery", created.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("correct horse battery")))
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateInput{Email: "tony@dtauto.example", Name: "Tony", Password: "p4ssw0rd-long"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{Email: "tony@dtauto.example", Name: "Other", Password: "p4ssw0rd-long"})
	require.ErrorIs(t, err, ErrEmailExists)
}

func TestChangePasswordVerifiesCurrent(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo, nil, nil)

	created, err := svc.Create(context.Background(), CreateInput{Email: "tony@dtauto.example", Name: "Tony", Password: "old password 1"})
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), created.ID, "wrong guess", "new password 1")
	require.ErrorIs(t, err, ErrWrongPassword)

	err = svc.ChangePassword(context.Background(), created.ID, "old password 1", "new password 1")
	require.NoError(t, err)

	stored, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("new password 1")))
}

func TestSetActiveUnknownUser(t *testing.T) {
	svc := NewService(newMemoryUserRepo(), nil, nil)
	err := svc.SetActive(context.Background(), 42, false)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
