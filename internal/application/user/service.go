package user

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/auth-api/internal/domain"
	"github.com/auth-api/internal/pkg/id"
)

// Repository is the user store interface this service requires.
type Repository interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
}

// AvatarStore persists avatar images and returns their URL.
type AvatarStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

// PublicProfile is the projection of a user safe to show to anyone.
type PublicProfile struct {
	UserID    string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Bio       string `json:"bio,omitempty"`
	Picture   string `json:"picture,omitempty"`
	Linkedin  string `json:"linkedin,omitempty"`
	Github    string `json:"github,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
}

type ChangeRoleRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required"`
}

type Service interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetPublicProfile(ctx context.Context, userID string) (*PublicProfile, error)
	UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.User, error)
	UploadAvatar(ctx context.Context, userID, filename string, r io.Reader, contentType string) (string, error)
	List(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
	ChangeRole(ctx context.Context, email, role string) (*domain.User, error)
}

type service struct {
	repo    Repository
	avatars AvatarStore
}

func NewService(repo Repository, avatars AvatarStore) Service {
	return &service{repo: repo, avatars: avatars}
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) GetPublicProfile(ctx context.Context, userID string) (*PublicProfile, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &PublicProfile{
		UserID:    u.UserID,
		Name:      u.Name,
		Role:      u.Role,
		Bio:       u.Bio,
		Picture:   u.Picture,
		Linkedin:  u.Linkedin,
		Github:    u.Github,
		Instagram: u.Instagram,
		Facebook:  u.Facebook,
	}, nil
}

// UpdateProfile writes only the allow-listed profile fields. Email, role,
// password, and verification state are never touched here.
func (s *service) UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.User, error) {
	updates := map[string]interface{}{}
	setIf(updates, "name", req.Name)
	setIf(updates, "bio", req.Bio)
	setIf(updates, "picture", req.Picture)
	setIf(updates, "linkedin", req.Linkedin)
	setIf(updates, "github", req.Github)
	setIf(updates, "instagram", req.Instagram)
	setIf(updates, "facebook", req.Facebook)
	if len(updates) == 0 {
		return nil, fmt.Errorf("no profile fields to update: %w", domain.ErrBadRequest)
	}
	if err := s.repo.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

// UploadAvatar stores the image and records its URL on the profile.
func (s *service) UploadAvatar(ctx context.Context, userID, filename string, r io.Reader, contentType string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		return "", fmt.Errorf("unsupported avatar format %q: %w", ext, domain.ErrBadRequest)
	}
	key := fmt.Sprintf("avatars/%s/%s%s", userID, id.New(), ext)
	url, err := s.avatars.Upload(ctx, key, r, contentType)
	if err != nil {
		return "", err
	}
	if err := s.repo.Update(ctx, userID, map[string]interface{}{"picture": url}); err != nil {
		return "", err
	}
	return url, nil
}

func (s *service) List(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return s.repo.ScanPage(ctx, limit, cursor)
}

func (s *service) ChangeRole(ctx context.Context, email, role string) (*domain.User, error) {
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("unknown role %q: %w", role, domain.ErrBadRequest)
	}
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, u.UserID, map[string]interface{}{"role": role}); err != nil {
		return nil, err
	}
	u.Role = role
	return u, nil
}

func setIf(updates map[string]interface{}, field string, v *string) {
	if v != nil {
		updates[field] = *v
	}
}
