package user

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/auth-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockRepo struct{ mock.Mock }

func (m *mockRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}
func (m *mockRepo) ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error) {
	args := m.Called(ctx, limit, cursor)
	users, _ := args.Get(0).([]domain.User)
	return users, args.String(1), args.Error(2)
}

type mockAvatarStore struct{ mock.Mock }

func (m *mockAvatarStore) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	args := m.Called(ctx, key, r, contentType)
	return args.String(0), args.Error(1)
}

// --- tests ---

func TestGetPublicProfile_OmitsCredentials(t *testing.T) {
	repo := &mockRepo{}
	repo.On("Get", mock.Anything, "u1").Return(&domain.User{
		UserID: "u1", Email: "alice@example.com", PasswordHash: "hash",
		Name: "Alice", Role: domain.RoleUser, Bio: "hi", Github: "alice",
	}, nil)

	svc := NewService(repo, nil)
	p, err := svc.GetPublicProfile(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)
	assert.Equal(t, "alice", p.Github)
}

func TestUpdateProfile_AllowListedFieldsOnly(t *testing.T) {
	repo := &mockRepo{}
	var updates map[string]interface{}
	repo.On("Update", mock.Anything, "u1", mock.Anything).Run(func(args mock.Arguments) {
		updates = args.Get(2).(map[string]interface{})
	}).Return(nil)
	repo.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)

	name := "New Name"
	bio := "new bio"
	svc := NewService(repo, nil)
	_, err := svc.UpdateProfile(context.Background(), "u1", domain.UpdateProfileRequest{Name: &name, Bio: &bio})

	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"name": "New Name", "bio": "new bio"}, updates)
}

func TestUpdateProfile_NoFields_BadRequest(t *testing.T) {
	svc := NewService(&mockRepo{}, nil)
	_, err := svc.UpdateProfile(context.Background(), "u1", domain.UpdateProfileRequest{})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestUploadAvatar_StoresAndRecordsURL(t *testing.T) {
	repo := &mockRepo{}
	store := &mockAvatarStore{}
	store.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "avatars/u1/") && strings.HasSuffix(key, ".png")
	}), mock.Anything, "image/png").Return("s3://bucket/avatars/u1/x.png", nil)
	repo.On("Update", mock.Anything, "u1", map[string]interface{}{
		"picture": "s3://bucket/avatars/u1/x.png",
	}).Return(nil)

	svc := NewService(repo, store)
	url, err := svc.UploadAvatar(context.Background(), "u1", "me.png", strings.NewReader("img"), "image/png")

	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/avatars/u1/x.png", url)
}

func TestUploadAvatar_RejectsUnknownFormat(t *testing.T) {
	svc := NewService(&mockRepo{}, &mockAvatarStore{})
	_, err := svc.UploadAvatar(context.Background(), "u1", "evil.exe", strings.NewReader(""), "application/octet-stream")
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestList_ClampsLimit(t *testing.T) {
	repo := &mockRepo{}
	repo.On("ScanPage", mock.Anything, int32(50), "").Return([]domain.User{}, "", nil)

	svc := NewService(repo, nil)
	_, _, err := svc.List(context.Background(), 0, "")

	require.NoError(t, err)
	repo.AssertCalled(t, "ScanPage", mock.Anything, int32(50), "")
}

func TestChangeRole_PromotesUser(t *testing.T) {
	repo := &mockRepo{}
	repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(&domain.User{
		UserID: "u1", Email: "alice@example.com", Role: domain.RoleUser,
	}, nil)
	repo.On("Update", mock.Anything, "u1", map[string]interface{}{"role": domain.RoleAdmin}).Return(nil)

	svc := NewService(repo, nil)
	u, err := svc.ChangeRole(context.Background(), "Alice@Example.com", domain.RoleAdmin)

	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)
}

func TestChangeRole_UnknownRole_BadRequest(t *testing.T) {
	svc := NewService(&mockRepo{}, nil)
	_, err := svc.ChangeRole(context.Background(), "alice@example.com", "OVERLORD")
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}
