package otp

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/auth-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockRepo struct{ mock.Mock }

func (m *mockRepo) Put(ctx context.Context, o *domain.OTP) error {
	return m.Called(ctx, o).Error(0)
}
func (m *mockRepo) Get(ctx context.Context, email string) (*domain.OTP, error) {
	args := m.Called(ctx, email)
	if o, _ := args.Get(0).(*domain.OTP); o != nil {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRepo) Delete(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

// --- Issue ---

func TestIssue_SixDigitCode(t *testing.T) {
	repo := &mockRepo{}
	var stored *domain.OTP
	repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.OTP")).Run(func(args mock.Arguments) {
		stored = args.Get(1).(*domain.OTP)
	}).Return(nil)

	svc := NewService(repo, 10*time.Minute)
	code, err := svc.Issue(context.Background(), "a@b.com")

	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)
	require.NotNil(t, stored)
	assert.Equal(t, code, stored.Code)
	assert.Equal(t, "a@b.com", stored.Email)
	assert.Greater(t, stored.ExpiresAt, stored.CreatedAt)
}

func TestIssue_PutFails(t *testing.T) {
	repo := &mockRepo{}
	repo.On("Put", mock.Anything, mock.Anything).Return(errors.New("dynamo down"))

	svc := NewService(repo, 10*time.Minute)
	_, err := svc.Issue(context.Background(), "a@b.com")
	assert.Error(t, err)
}

// --- Verify ---

func liveOTP(email, code string) *domain.OTP {
	now := time.Now().Unix()
	return &domain.OTP{Email: email, Code: code, CreatedAt: now, ExpiresAt: now + 600}
}

func TestVerify_HappyPath_ConsumesCode(t *testing.T) {
	repo := &mockRepo{}
	repo.On("Get", mock.Anything, "a@b.com").Return(liveOTP("a@b.com", "482913"), nil)
	repo.On("Delete", mock.Anything, "a@b.com").Return(nil)

	svc := NewService(repo, 10*time.Minute)
	err := svc.Verify(context.Background(), "a@b.com", "482913")

	require.NoError(t, err)
	repo.AssertCalled(t, "Delete", mock.Anything, "a@b.com")
}

func TestVerify_NotFound(t *testing.T) {
	repo := &mockRepo{}
	repo.On("Get", mock.Anything, "a@b.com").Return(nil, domain.ErrNotFound)

	svc := NewService(repo, 10*time.Minute)
	err := svc.Verify(context.Background(), "a@b.com", "482913")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestVerify_SecondUseFails(t *testing.T) {
	// After a successful consume the row is gone; the second verify sees NotFound.
	repo := &mockRepo{}
	repo.On("Get", mock.Anything, "a@b.com").Return(liveOTP("a@b.com", "482913"), nil).Once()
	repo.On("Delete", mock.Anything, "a@b.com").Return(nil).Once()
	repo.On("Get", mock.Anything, "a@b.com").Return(nil, domain.ErrNotFound)

	svc := NewService(repo, 10*time.Minute)
	require.NoError(t, svc.Verify(context.Background(), "a@b.com", "482913"))

	err := svc.Verify(context.Background(), "a@b.com", "482913")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestVerify_Expired_DeletesStaleRow(t *testing.T) {
	past := time.Now().Add(-20 * time.Minute).Unix()
	repo := &mockRepo{}
	repo.On("Get", mock.Anything, "a@b.com").Return(&domain.OTP{
		Email: "a@b.com", Code: "482913", CreatedAt: past, ExpiresAt: past + 600,
	}, nil)
	repo.On("Delete", mock.Anything, "a@b.com").Return(nil)

	svc := NewService(repo, 10*time.Minute)
	err := svc.Verify(context.Background(), "a@b.com", "482913")

	assert.True(t, errors.Is(err, domain.ErrOTPExpired))
	repo.AssertCalled(t, "Delete", mock.Anything, "a@b.com")
}

func TestVerify_Mismatch(t *testing.T) {
	repo := &mockRepo{}
	repo.On("Get", mock.Anything, "a@b.com").Return(liveOTP("a@b.com", "482913"), nil)

	svc := NewService(repo, 10*time.Minute)
	err := svc.Verify(context.Background(), "a@b.com", "000000")

	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestVerify_ConsumeFails(t *testing.T) {
	repo := &mockRepo{}
	repo.On("Get", mock.Anything, "a@b.com").Return(liveOTP("a@b.com", "482913"), nil)
	repo.On("Delete", mock.Anything, "a@b.com").Return(errors.New("dynamo down"))

	svc := NewService(repo, 10*time.Minute)
	err := svc.Verify(context.Background(), "a@b.com", "482913")
	assert.ErrorContains(t, err, "consume otp")
}
