package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"bizcard/internal/domain"
	"bizcard/internal/email"
	"bizcard/internal/queue"
	"bizcard/internal/repository"
)

// UserService resuelve identidades de proveedores externos a usuarios locales.
// Un usuario se crea solo en su primer inicio de sesión exitoso.
type UserService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	emailSender email.Sender
	otpLimiter  OTPRateLimiter
	otps        OTPStore
	events      queue.Publisher
	otpCost     int
}

func NewUserService(
	logger *zap.Logger,
	users repository.UserRepository,
	emailSender email.Sender,
	otpLimiter OTPRateLimiter,
	otps OTPStore,
	events queue.Publisher,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if otpLimiter == nil {
		otpLimiter = NewOTPRateLimiter(otpTTL, 3)
	}
	if otps == nil {
		otps = NewMemoryOTPStore()
	}
	if events == nil {
		events = queue.NewNoop()
	}
	return &UserService{
		logger:      logger,
		users:       users,
		emailSender: emailSender,
		otpLimiter:  otpLimiter,
		otps:        otps,
		events:      events,
		otpCost:     bcrypt.DefaultCost,
	}
}

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrOTPNotRequested  = errors.New("otp not requested")
	ErrOTPExpired       = errors.New("otp expired")
	ErrOTPInvalid       = errors.New("otp invalid")
	ErrOAuthInvalid     = errors.New("oauth data invalid")
	ErrEmailSendFailure = errors.New("email send failed")
	ErrRateLimited      = errors.New("rate limited")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrEmailInUse       = errors.New("email already belongs to another account")
)

const (
	otpTTL         = 10 * time.Minute
	maxOTPAttempts = 5
)

func (s *UserService) GetUser(ctx context.Context, id string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// OAuthInput es la identidad que el servidor de autenticación ya resolvió con el proveedor.
type OAuthInput struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	DisplayName   string
	AvatarURL     string
}

// UpsertOAuthUser mapea (provider, subject) a un usuario estable.
// Solo vincula una cuenta existente por email cuando el proveedor verificó ese email.
func (s *UserService) UpsertOAuthUser(ctx context.Context, input OAuthInput) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	provider := strings.ToLower(strings.TrimSpace(input.Provider))
	subject := strings.TrimSpace(input.Subject)
	emailAddr := normalizeEmail(input.Email)
	displayName := strings.TrimSpace(input.DisplayName)

	// El proveedor credentials solo se alcanza verificando un OTP.
	if provider == "" || subject == "" || provider == domain.ProviderCredentials {
		return domain.User{}, ErrOAuthInvalid
	}
	if emailAddr != "" && !domain.IsEmail(emailAddr) {
		return domain.User{}, ErrOAuthInvalid
	}

	user, err := s.users.GetByAuth(ctx, provider, subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	if emailAddr != "" {
		existing, err := s.users.GetByEmail(ctx, emailAddr)
		switch {
		case err == nil && input.EmailVerified:
			return s.linkOAuth(ctx, existing, provider, subject, displayName)
		case err == nil:
			return domain.User{}, ErrEmailInUse
		case !errors.Is(err, pgx.ErrNoRows):
			return domain.User{}, err
		}
	}

	now := time.Now().UTC()
	user = domain.User{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		DisplayName:  displayName,
		AvatarURL:    strings.TrimSpace(input.AvatarURL),
		AuthProvider: provider,
		AuthSubject:  subject,
		CreatedAt:    now,
	}
	if emailAddr != "" && input.EmailVerified {
		user.EmailVerifiedAt = &now
	}
	if err := s.createUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.User{}, ErrEmailInUse
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) linkOAuth(ctx context.Context, existing domain.User, provider, subject, displayName string) (domain.User, error) {
	if err := s.users.LinkOAuth(ctx, existing.ID, provider, subject); err != nil {
		return domain.User{}, err
	}
	verifiedAt := time.Now().UTC()
	if err := s.users.VerifyEmail(ctx, existing.ID, verifiedAt); err != nil {
		return domain.User{}, err
	}
	existing.AuthProvider = provider
	existing.AuthSubject = subject
	if existing.EmailVerifiedAt == nil {
		existing.EmailVerifiedAt = &verifiedAt
	}
	if displayName != "" && existing.DisplayName == "" {
		existing.DisplayName = displayName
	}
	return existing, nil
}

// RequestOTP envía un código al email. No crea usuarios.
func (s *UserService) RequestOTP(ctx context.Context, emailAddr string) (time.Time, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || !domain.IsEmail(emailAddr) {
		return time.Time{}, ErrInvalidEmail
	}

	if !s.otpLimiter.Allow(ctx, emailAddr) {
		return time.Time{}, ErrRateLimited
	}

	code, hash, expiresAt, err := s.generateOTP()
	if err != nil {
		return time.Time{}, err
	}
	if err := s.otps.Put(ctx, emailAddr, OTPEntry{Hash: hash, ExpiresAt: expiresAt}); err != nil {
		return time.Time{}, fmt.Errorf("store otp: %w", err)
	}

	if s.emailSender == nil {
		return time.Time{}, ErrEmailSendFailure
	}
	if err := s.emailSender.SendVerificationOTP(ctx, emailAddr, code, expiresAt); err != nil {
		s.logger.Warn("send verification otp failed", zap.Error(err), zap.String("email", emailAddr))
		return time.Time{}, ErrEmailSendFailure
	}
	return expiresAt, nil
}

// VerifyOTP completa el inicio de sesión del proveedor credentials y crea el usuario si es nuevo.
func (s *UserService) VerifyOTP(ctx context.Context, emailAddr, code, displayName string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	code = strings.TrimSpace(code)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}
	if !isValidOTPCode(code) {
		return domain.User{}, ErrOTPInvalid
	}

	entry, ok, err := s.otps.Get(ctx, emailAddr)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, ErrOTPNotRequested
	}
	if time.Now().UTC().After(entry.ExpiresAt) {
		_ = s.otps.Delete(ctx, emailAddr)
		return domain.User{}, ErrOTPExpired
	}
	if bcrypt.CompareHashAndPassword([]byte(entry.Hash), []byte(code)) != nil {
		entry.Attempts++
		if entry.Attempts >= maxOTPAttempts {
			_ = s.otps.Delete(ctx, emailAddr)
		} else if err := s.otps.Put(ctx, emailAddr, entry); err != nil {
			s.logger.Warn("persist otp attempts failed", zap.Error(err))
		}
		return domain.User{}, ErrOTPInvalid
	}
	if err := s.otps.Delete(ctx, emailAddr); err != nil {
		s.logger.Warn("delete used otp failed", zap.Error(err))
	}

	return s.resolveCredentialsUser(ctx, emailAddr, strings.TrimSpace(displayName))
}

func (s *UserService) resolveCredentialsUser(ctx context.Context, emailAddr, displayName string) (domain.User, error) {
	verifiedAt := time.Now().UTC()

	user, err := s.users.GetByAuth(ctx, domain.ProviderCredentials, emailAddr)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	// Un usuario que entró antes con otro proveedor conserva su vínculo original.
	existing, err := s.users.GetByEmail(ctx, emailAddr)
	if err == nil {
		if existing.EmailVerifiedAt == nil {
			if err := s.users.VerifyEmail(ctx, existing.ID, verifiedAt); err != nil {
				return domain.User{}, err
			}
			existing.EmailVerifiedAt = &verifiedAt
		}
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	user = domain.User{
		ID:              uuid.NewString(),
		Email:           emailAddr,
		DisplayName:     displayName,
		AuthProvider:    domain.ProviderCredentials,
		AuthSubject:     emailAddr,
		EmailVerifiedAt: &verifiedAt,
		CreatedAt:       verifiedAt,
	}
	if err := s.createUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) createUser(ctx context.Context, user domain.User) error {
	if err := s.users.Create(ctx, user); err != nil {
		return err
	}
	event := queue.UserSignedUp{UserID: user.ID, Email: user.Email, Provider: user.AuthProvider}
	if err := s.events.Publish(ctx, queue.KeyUserSignedUp, event); err != nil {
		s.logger.Warn("publish user signed up failed", zap.Error(err), zap.String("user_id", user.ID))
	}
	return nil
}

func (s *UserService) generateOTP() (string, string, time.Time, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", "", time.Time{}, err
	}
	code := fmt.Sprintf("%06d", n.Int64())

	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.otpCost)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return code, string(hash), time.Now().UTC().Add(otpTTL), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidOTPCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
