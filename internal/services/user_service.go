package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"rental-service/internal/apperr"
	"rental-service/internal/config"
	"rental-service/internal/models"
	"rental-service/internal/repository"
	"rental-service/internal/security"
	utils "rental-service/shared/utils"
)

const errInvalidCredentials = "email or password incorrect"

type UserService struct {
	userRepo       *repository.UserRepository
	sessionService *SessionService
	jwtService     *JWTService
	cipher         *security.FieldCipher
	cfg            config.AuthConfig
	now            func() time.Time
}

func NewUserService(
	userRepo *repository.UserRepository,
	sessionService *SessionService,
	jwtService *JWTService,
	cipher *security.FieldCipher,
	cfg config.AuthConfig,
) *UserService {
	return &UserService{
		userRepo:       userRepo,
		sessionService: sessionService,
		jwtService:     jwtService,
		cipher:         cipher,
		cfg:            cfg,
		now:            time.Now,
	}
}

func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	email := utils.NormalizeEmail(req.Email)
	if err := utils.ValidateEmail(email); err != nil {
		return nil, apperr.InvalidInput("%s", err.Error())
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return nil, apperr.InvalidInput("%s", err.Error())
	}
	if req.Phone != "" {
		if err := utils.ValidatePhone(req.Phone); err != nil {
			return nil, apperr.InvalidInput("%s", err.Error())
		}
	}

	role := req.Role
	if role == "" {
		role = models.RoleTenant
	}
	if !role.Valid() {
		return nil, apperr.InvalidInput("role %q is not valid", role)
	}
	if role == models.RoleAdmin {
		return nil, apperr.Forbidden("admin accounts cannot self-register")
	}

	return s.createUser(ctx, email, req.Password, strings.TrimSpace(req.FullName), role, req.Phone, req.NationalID)
}

func (s *UserService) createUser(ctx context.Context, email, password, fullName string, role models.UserRole, phone, nationalID string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Unexpected(err, "failed to hash password")
	}

	now := s.now().Unix()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
		Role:         role,
		Status:       models.UserActive,
		Balance:      decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
		Phone:        phone,
		NationalID:   nationalID,
	}
	if err := s.sealPII(user); err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("email %s is already registered", email)
		}
		return nil, apperr.Unexpected(err, "failed to create user")
	}
	slog.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *UserService) sealPII(user *models.User) error {
	var err error
	if user.PhoneEncrypted, err = s.cipher.Encrypt(user.Phone); err != nil {
		return apperr.Unexpected(err, "failed to encrypt phone")
	}
	if user.NationalIDEncrypted, err = s.cipher.Encrypt(user.NationalID); err != nil {
		return apperr.Unexpected(err, "failed to encrypt national id")
	}
	return nil
}

func (s *UserService) openPII(user *models.User) {
	var err error
	if user.Phone, err = s.cipher.Decrypt(user.PhoneEncrypted); err != nil {
		slog.Error("failed to decrypt phone", "user_id", user.ID, "error", err)
	}
	if user.NationalID, err = s.cipher.Decrypt(user.NationalIDEncrypted); err != nil {
		slog.Error("failed to decrypt national id", "user_id", user.ID, "error", err)
	}
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	email = utils.NormalizeEmail(email)
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}
	if _, err := s.createUser(ctx, email, password, "Administrator", models.RoleAdmin, "", ""); err != nil {
		return err
	}
	slog.Info("bootstrap admin created", "email", email)
	return nil
}

func (s *UserService) Login(ctx context.Context, req models.LoginRequest, deviceInfo, ipAddress string) (*models.LoginResponse, error) {
	email := utils.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, apperr.InvalidInput("email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unauthorized(errInvalidCredentials)
	}
	if err != nil {
		return nil, apperr.Unexpected(err, "failed to load user")
	}

	now := s.now()
	if user.LockedUntil > now.Unix() {
		return nil, apperr.Forbidden("account locked until %s", time.Unix(user.LockedUntil, 0).UTC().Format(time.RFC3339))
	}
	if user.Status != models.UserActive {
		return nil, apperr.Forbidden("account is %s", user.Status)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		s.recordFailure(ctx, user, now)
		return nil, apperr.Unauthorized(errInvalidCredentials)
	}

	if err := s.userRepo.RecordLoginSuccess(ctx, user.ID, now.Unix()); err != nil {
		slog.Warn("failed to reset login attempts", "user_id", user.ID, "error", err)
	}

	session, err := s.sessionService.CreateSession(ctx, user.ID, deviceInfo, ipAddress, now)
	if err != nil {
		return nil, apperr.Unexpected(err, "failed to create session")
	}
	token, err := s.jwtService.GenerateToken(user, session.ID, now)
	if err != nil {
		return nil, apperr.Unexpected(err, "failed to issue token")
	}

	ts := now.Unix()
	user.LastLoginAt = &ts
	user.LoginAttempts = 0
	s.openPII(user)
	return &models.LoginResponse{User: user, Session: session, AccessToken: token}, nil
}

func (s *UserService) recordFailure(ctx context.Context, user *models.User, now time.Time) {
	attempts := user.LoginAttempts + 1
	var lockedUntil int64
	if s.cfg.MaxLoginAttempts > 0 && attempts >= s.cfg.MaxLoginAttempts {
		lockedUntil = now.Add(s.cfg.LockoutDuration).Unix()
		attempts = 0
		slog.Warn("account locked after repeated login failures", "user_id", user.ID, "until", lockedUntil)
	}
	if err := s.userRepo.RecordLoginFailure(ctx, user.ID, attempts, lockedUntil, now.Unix()); err != nil {
		slog.Error("failed to record login failure", "user_id", user.ID, "error", err)
	}
}

func (s *UserService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessionService.InvalidateSession(ctx, sessionID); err != nil {
		return apperr.Unexpected(err, "failed to end session")
	}
	return nil
}

// Authenticate verifies a bearer token and that its session is still live.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.Claims, error) {
	claims, err := s.jwtService.VerifyToken(token)
	if err != nil {
		return nil, apperr.Unauthorized("invalid or expired token")
	}
	if _, err := s.sessionService.ValidateSession(ctx, claims.SessionID, claims.UserID); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *UserService) GetByID(ctx context.Context, actor models.Actor, id string) (*models.User, error) {
	if !actor.CanManage(id) {
		return nil, apperr.Forbidden("cannot view another user's account")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.openPII(user)
	return user, nil
}

func (s *UserService) load(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("user %s not found", id)
	}
	if err != nil {
		return nil, apperr.Unexpected(err, "failed to load user %s", id)
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, actor models.Actor, role models.UserRole, page, limit int) ([]models.User, int, error) {
	if !actor.IsAdmin() {
		return nil, 0, apperr.Forbidden("only admins can list users")
	}
	if role != "" && !role.Valid() {
		return nil, 0, apperr.InvalidInput("role %q is not valid", role)
	}
	users, total, err := s.userRepo.List(ctx, role, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, apperr.Unexpected(err, "failed to list users")
	}
	return users, total, nil
}

func (s *UserService) Update(ctx context.Context, actor models.Actor, id string, req models.UpdateUserRequest) (*models.User, error) {
	if !actor.CanManage(id) {
		return nil, apperr.Forbidden("cannot update another user's account")
	}
	if (req.Role != nil || req.Status != nil) && !actor.IsAdmin() {
		return nil, apperr.Forbidden("only admins can change role or status")
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.openPII(user)

	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		if *req.Phone != "" {
			if err := utils.ValidatePhone(*req.Phone); err != nil {
				return nil, apperr.InvalidInput("%s", err.Error())
			}
		}
		user.Phone = *req.Phone
	}
	if req.NationalID != nil {
		user.NationalID = *req.NationalID
	}
	if req.Password != nil {
		if err := utils.ValidatePassword(*req.Password); err != nil {
			return nil, apperr.InvalidInput("%s", err.Error())
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperr.Unexpected(err, "failed to hash password")
		}
		user.PasswordHash = string(hash)
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, apperr.InvalidInput("role %q is not valid", *req.Role)
		}
		user.Role = *req.Role
	}
	if req.Status != nil {
		user.Status = *req.Status
	}
	if err := s.sealPII(user); err != nil {
		return nil, err
	}
	user.UpdatedAt = s.now().Unix()

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("user %s not found", id)
		}
		return nil, apperr.Unexpected(err, "failed to update user")
	}
	if user.Status != models.UserActive || req.Password != nil {
		s.revokeSessions(ctx, user.ID)
	}
	return user, nil
}

// Deactivate soft-deletes an account. History that references the user
// stays intact.
func (s *UserService) Deactivate(ctx context.Context, actor models.Actor, id string) error {
	if !actor.CanManage(id) {
		return apperr.Forbidden("cannot delete another user's account")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	user.Status = models.UserDeactivated
	user.UpdatedAt = s.now().Unix()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return apperr.Unexpected(err, "failed to deactivate user")
	}
	s.revokeSessions(ctx, id)
	slog.Info("user deactivated", "user_id", id, "by", actor.UserID)
	return nil
}

func (s *UserService) revokeSessions(ctx context.Context, userID string) {
	if err := s.sessionService.InvalidateUserSessions(ctx, userID); err != nil {
		slog.Warn("failed to revoke sessions", "user_id", userID, "error", err)
	}
}
