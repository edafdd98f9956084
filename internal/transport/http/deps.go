package http

import (
	"github.com/auth-api/internal/infrastructure/dynamo"
	googleinfra "github.com/auth-api/internal/infrastructure/google"
	jwtinfra "github.com/auth-api/internal/infrastructure/jwt"
	s3infra "github.com/auth-api/internal/infrastructure/s3"
	"github.com/auth-api/internal/infrastructure/smtp"
	"github.com/auth-api/internal/infrastructure/sns"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo    *dynamo.UserRepo
	OTPRepo     *dynamo.OTPRepo
	TokenRepo   *dynamo.RefreshTokenRepo
	AvatarStore *s3infra.Store
	Mailer      smtp.Mailer
	Google      *googleinfra.Verifier
	Alerts      sns.AlertPublisher // nil disables security alerts
	JWTProvider *jwtinfra.Provider
}
