package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/dagym/contract-backend/internal/users"
	"github.com/dagym/contract-backend/pkg/config"
	"github.com/dagym/contract-backend/pkg/db"
	"github.com/dagym/contract-backend/pkg/db/models"
	"github.com/dagym/contract-backend/pkg/enums"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/security"
	"github.com/dagym/contract-backend/pkg/validation"
)

// RegisterRequest creates a console operator account.
type RegisterRequest struct {
	Email    string             `json:"email" validate:"required,looseemail"`
	Name     string             `json:"name" validate:"required,runemin=2"`
	Password string             `json:"password" validate:"required"`
	Role     enums.OperatorRole `json:"role"`
}

// RegisterService provisions operator accounts. Admins call it from the console and the migrate
// command calls it to bootstrap the first admin.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type registerUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	TxRunner        txRunner
	UserRepoFactory func(tx *gorm.DB) registerUserRepository
	PasswordConfig  config.PasswordConfig
}

type registerService struct {
	tx          txRunner
	userFactory func(tx *gorm.DB) registerUserRepository
	hasher      *security.Hasher
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	factory := params.UserRepoFactory
	if factory == nil {
		factory = func(tx *gorm.DB) registerUserRepository { return users.NewRepository(tx) }
	}
	return &registerService{
		tx:          params.TxRunner,
		userFactory: factory,
		hasher:      security.NewHasher(params.PasswordConfig),
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if verr := validation.Check(validation.New(), req, "invalid operator"); verr != nil {
		return nil, verr
	}
	if err := security.CheckStrength(req.Password); err != nil {
		return nil, pkgerrors.FieldErrors("invalid operator", map[string]string{"password": strings.TrimPrefix(err.Error(), security.ErrWeakPassword.Error()+": ")})
	}
	if req.Role == "" {
		req.Role = enums.OperatorRoleUser
	}
	if !req.Role.IsValid() {
		return nil, pkgerrors.FieldErrors("invalid operator", map[string]string{"role": "must be one of [admin user]"})
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *users.UserDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.userFactory(tx)

		if _, err := userRepo.FindByEmail(ctx, req.Email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Email:        req.Email,
			PasswordHash: passwordHash,
			Name:         req.Name,
			Role:         req.Role,
		})
		if db.IsUniqueViolation(err, "users_email_key") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already registered")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		created = users.FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
