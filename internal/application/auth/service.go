package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-taskboard-api/internal/domain"
	"github.com/go-taskboard-api/internal/infrastructure/smtp"
	"github.com/go-taskboard-api/internal/pkg/otp"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldPasswordHash = "password_hash"
	fieldOTP          = "otp"
	fieldOTPExpiry    = "otp_expiry"
	fieldFirstLogin   = "first_login"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult carries either a bearer token or, for accounts that have not
// completed first login, only the ResetRequired signal.
type LoginResult struct {
	Token         string       `json:"token,omitempty"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty"`
	ResetRequired bool         `json:"reset_required"`
	User          *domain.User `json:"user,omitempty"`
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type SetNewPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,password"`
	Flow        string `json:"flow" validate:"required,oneof=first-login forgot-password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,password"`
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	RequestFirstLoginReset(ctx context.Context, email string) error
	RequestPasswordReset(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, req VerifyOTPRequest) error
	SetNewPassword(ctx context.Context, req SetNewPasswordRequest) error
	ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error
	Me(ctx context.Context, userID string) (*domain.User, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type tokenSigner interface {
	Sign(userID string, role domain.Role) (string, time.Time, error)
}

type service struct {
	userRepo    userStore
	mailer      smtp.Mailer
	signer      tokenSigner
	otpTTL      time.Duration
	now         func() time.Time
	generateOTP func() (string, error)
}

// ServiceDeps wires the auth service. Now and GenerateOTP default to the
// wall clock and crypto/rand codes; OTPTTL defaults to ten minutes.
type ServiceDeps struct {
	UserRepo    userStore
	Mailer      smtp.Mailer
	Signer      tokenSigner
	OTPTTL      time.Duration
	Now         func() time.Time
	GenerateOTP func() (string, error)
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		userRepo:    deps.UserRepo,
		mailer:      deps.Mailer,
		signer:      deps.Signer,
		otpTTL:      deps.OTPTTL,
		now:         deps.Now,
		generateOTP: deps.GenerateOTP,
	}
	if s.otpTTL <= 0 {
		s.otpTTL = 10 * time.Minute
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.generateOTP == nil {
		s.generateOTP = otp.Generate
	}
	return s
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	u, err := s.userRepo.GetByEmail(ctx, domain.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if u.Status != domain.UserStatusActive {
		return nil, fmt.Errorf("account is inactive: %w", domain.ErrForbidden)
	}
	// The password hash is blank until first login completes.
	if u.FirstLogin {
		return &LoginResult{ResetRequired: true}, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	token, exp, err := s.signer.Sign(u.UserID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	slog.InfoContext(ctx, "user logged in", "user_id", u.UserID, "role", u.Role)
	return &LoginResult{Token: token, ExpiresAt: &exp, User: u}, nil
}

func (s *service) RequestFirstLoginReset(ctx context.Context, email string) error {
	u, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}
	if !u.FirstLogin {
		return fmt.Errorf("first login already completed: %w", domain.ErrBadRequest)
	}
	return s.issueOTP(ctx, u, domain.OTPFlowFirstLogin)
}

func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}
	return s.issueOTP(ctx, u, domain.OTPFlowForgotPassword)
}

// VerifyOTP checks a code without consuming it; the same code is required
// again by SetNewPassword.
func (s *service) VerifyOTP(ctx context.Context, req VerifyOTPRequest) error {
	u, err := s.lookup(ctx, req.Email)
	if err != nil {
		return err
	}
	if !u.OTPMatches(req.OTP, s.now()) {
		return domain.ErrInvalidOTP
	}
	return nil
}

func (s *service) SetNewPassword(ctx context.Context, req SetNewPasswordRequest) error {
	flow, err := domain.ParseOTPFlow(req.Flow)
	if err != nil {
		return err
	}
	u, err := s.lookup(ctx, req.Email)
	if err != nil {
		return err
	}
	switch flow {
	case domain.OTPFlowFirstLogin:
		if !u.FirstLogin {
			return fmt.Errorf("first login already completed: %w", domain.ErrBadRequest)
		}
	case domain.OTPFlowForgotPassword:
		if u.FirstLogin {
			return fmt.Errorf("first login must be completed with the first-login flow: %w", domain.ErrBadRequest)
		}
	}
	if !u.OTPMatches(req.OTP, s.now()) {
		return domain.ErrInvalidOTP
	}
	if err := domain.ValidatePassword(req.NewPassword); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	updates := map[string]interface{}{
		fieldPasswordHash: string(hash),
		fieldOTP:          nil,
		fieldOTPExpiry:    nil,
	}
	if flow == domain.OTPFlowFirstLogin {
		updates[fieldFirstLogin] = false
	}
	if err := s.userRepo.Update(ctx, u.UserID, updates); err != nil {
		return err
	}
	slog.InfoContext(ctx, "password set", "user_id", u.UserID, "flow", flow)
	return nil
}

func (s *service) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return domain.ErrInvalidCredentials
	}
	if err := domain.ValidatePassword(req.NewPassword); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.userRepo.Update(ctx, userID, map[string]interface{}{fieldPasswordHash: string(hash)})
}

func (s *service) Me(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.Get(ctx, userID)
}

// lookup resolves an email to an active user. Unknown emails are 404.
func (s *service) lookup(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.userRepo.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("no account for this email: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	if u.Status != domain.UserStatusActive {
		return nil, fmt.Errorf("account is inactive: %w", domain.ErrForbidden)
	}
	return u, nil
}

// issueOTP stores a fresh code on the user, replacing any previous one, and emails it.
func (s *service) issueOTP(ctx context.Context, u *domain.User, flow domain.OTPFlow) error {
	code, err := s.generateOTP()
	if err != nil {
		return err
	}
	now := s.now().UTC()
	prev := u.State(now)
	expiry := now.Add(s.otpTTL)
	if err := s.userRepo.Update(ctx, u.UserID, map[string]interface{}{
		fieldOTP:       code,
		fieldOTPExpiry: expiry,
	}); err != nil {
		return err
	}
	if err := s.mailer.SendEmail(ctx, u.Email, otp.Subject, otp.EmailBody(code, s.otpTTL)); err != nil {
		return fmt.Errorf("deliver otp: %w", err)
	}
	slog.InfoContext(ctx, "otp issued", "user_id", u.UserID, "flow", flow, "from_state", prev, "expires_at", expiry)
	return nil
}
