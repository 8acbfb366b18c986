// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/smarttaxi/user-service/internal/core"
	"github.com/smarttaxi/user-service/internal/events"
	"github.com/smarttaxi/user-service/internal/metrics"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotEligible = errors.New("account is not active or not verified")
	ErrDuplicateIdentity  = errors.New("duplicate identity")
	ErrEmailExists        = fmt.Errorf("email already registered: %w", ErrDuplicateIdentity)
	ErrLicenseExists      = fmt.Errorf("license number already registered: %w", ErrDuplicateIdentity)
)

const tokenType = "Bearer"

type UserInfo struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Roles        []string
	IsActive     bool
	IsVerified   bool
}

// Eligible is the login gate: only active, verified accounts get a token.
func (u *UserInfo) Eligible() bool {
	return u.IsActive && u.IsVerified
}

type NewUser struct {
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	PhoneNumber   string
	Address       string
	City          string
	Region        string
	LicenseNumber string
}

// UserProvider is the credential store as seen by authentication. Create
// must report unique-constraint conflicts as ErrEmailExists or
// ErrLicenseExists.
type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	LicenseExists(ctx context.Context, licenseNumber string) (bool, error)
	Create(ctx context.Context, u NewUser) (*UserInfo, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}

type TokenIssuer interface {
	IssueAccessToken(subject string, roles []string) (string, time.Time, error)
}

type ServiceConfig struct {
	Users     UserProvider
	Tokens    TokenIssuer
	Hasher    *core.PasswordHasher
	Publisher events.Publisher
	Metrics   *metrics.Metrics

	// UnifyIneligibleErrors reports inactive or unverified accounts as
	// ErrInvalidCredentials.
	UnifyIneligibleErrors bool
}

type Service struct {
	users     UserProvider
	tokens    TokenIssuer
	hasher    *core.PasswordHasher
	publisher events.Publisher
	metrics   *metrics.Metrics
	unify     bool
}

func NewService(cfg ServiceConfig) *Service {
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &Service{
		users:     cfg.Users,
		tokens:    cfg.Tokens,
		hasher:    cfg.Hasher,
		publisher: publisher,
		metrics:   cfg.Metrics,
		unify:     cfg.UnifyIneligibleErrors,
	}
}

// Login runs lookup, password check and the eligibility gate, in that
// order, and issues an access token. No session is recorded.
func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
) (*AuthResponse, error) {
	ctx, span := core.StartSpan(ctx, "auth.Login")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.hasher.VerifyDummy(req.Password)
			s.loginRejected(ctx, metrics.OutcomeInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		s.metrics.ObserveLogin(metrics.OutcomeError)
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash := s.hasher.VerifyWithRehash(req.Password, user.PasswordHash)
	if !valid {
		s.loginRejected(ctx, metrics.OutcomeInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if !user.Eligible() {
		s.loginRejected(ctx, metrics.OutcomeNotEligible)
		if s.unify {
			return nil, ErrInvalidCredentials
		}
		return nil, ErrAccountNotEligible
	}

	if newHash != "" {
		if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
			slog.WarnContext(ctx, "password rehash failed",
				"user_id", user.ID,
				"error", err,
			)
		}
	}

	resp, err := s.authResponse(user)
	if err != nil {
		s.metrics.ObserveLogin(metrics.OutcomeError)
		core.SetSpanError(ctx, err)
		return nil, err
	}

	s.metrics.ObserveLogin(metrics.OutcomeSuccess)
	core.AddSpanEvent(ctx, "login.succeeded",
		attribute.Int64("user.id", user.ID),
	)

	return resp, nil
}

// Register creates an account with the default role and returns a token
// right away. The eligibility gate does not apply to this first token.
func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
) (*AuthResponse, error) {
	ctx, span := core.StartSpan(ctx, "auth.Register")
	defer span.End()

	email := normalizeEmail(req.Email)
	license := strings.TrimSpace(req.LicenseNumber)
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)

	if firstName == "" || lastName == "" {
		return nil, fmt.Errorf("register: names must not be blank: %w", core.ErrInvalidInput)
	}

	if err := s.checkAvailable(ctx, email, license); err != nil {
		return nil, s.registrationFailed(ctx, err)
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, s.registrationFailed(ctx, fmt.Errorf("hash password: %w", err))
	}

	user, err := s.users.Create(ctx, NewUser{
		Email:         email,
		PasswordHash:  passwordHash,
		FirstName:     firstName,
		LastName:      lastName,
		PhoneNumber:   strings.TrimSpace(req.Phone),
		Address:       strings.TrimSpace(req.Address),
		City:          strings.TrimSpace(req.City),
		Region:        strings.TrimSpace(req.Region),
		LicenseNumber: license,
	})
	if err != nil {
		if !errors.Is(err, ErrDuplicateIdentity) {
			err = fmt.Errorf("create user: %w", err)
		}
		return nil, s.registrationFailed(ctx, err)
	}

	resp, err := s.authResponse(user)
	if err != nil {
		return nil, s.registrationFailed(ctx, err)
	}

	s.metrics.ObserveRegistration(metrics.OutcomeSuccess)
	core.AddSpanEvent(ctx, "registration.succeeded",
		attribute.Int64("user.id", user.ID),
	)
	slog.InfoContext(ctx, "user registered", "user_id", user.ID)

	events.Emit(ctx, s.publisher, events.New(
		events.UserRegistered,
		strconv.FormatInt(user.ID, 10),
		map[string]any{
			"email": user.Email,
			"roles": user.Roles,
		},
	))

	return resp, nil
}

// checkAvailable gives a friendly error before hashing. The unique
// constraints in the store remain the source of truth under concurrency.
func (s *Service) checkAvailable(ctx context.Context, email, license string) error {
	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if exists {
		return ErrEmailExists
	}

	if license == "" {
		return nil
	}

	exists, err = s.users.LicenseExists(ctx, license)
	if err != nil {
		return fmt.Errorf("check license: %w", err)
	}
	if exists {
		return ErrLicenseExists
	}

	return nil
}

func (s *Service) authResponse(user *UserInfo) (*AuthResponse, error) {
	token, expiresAt, err := s.tokens.IssueAccessToken(
		strconv.FormatInt(user.ID, 10),
		user.Roles,
	)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &AuthResponse{
		UserID:     user.ID,
		Email:      user.Email,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Token:      token,
		TokenType:  tokenType,
		ExpiresAt:  expiresAt,
		Roles:      user.Roles,
		IsVerified: user.IsVerified,
		IsActive:   user.IsActive,
	}, nil
}

func (s *Service) loginRejected(ctx context.Context, outcome string) {
	s.metrics.ObserveLogin(outcome)
	core.AddSpanEvent(ctx, "login.rejected",
		attribute.String("reason", outcome),
	)
}

func (s *Service) registrationFailed(ctx context.Context, err error) error {
	if errors.Is(err, ErrDuplicateIdentity) {
		s.metrics.ObserveRegistration(metrics.OutcomeDuplicate)
		core.AddSpanEvent(ctx, "registration.rejected",
			attribute.String("reason", err.Error()),
		)
		return err
	}

	s.metrics.ObserveRegistration(metrics.OutcomeError)
	core.SetSpanError(ctx, err)
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
