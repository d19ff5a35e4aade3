package businesses

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/dagym/contract-backend/pkg/db/models"
	"github.com/dagym/contract-backend/pkg/enums"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/logger"
	"github.com/dagym/contract-backend/pkg/pagination"
	"github.com/dagym/contract-backend/pkg/types"
	"github.com/dagym/contract-backend/pkg/validation"
)

type businessRepository interface {
	Create(ctx context.Context, business *models.Business) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Business, error)
	UpsertWithTx(ctx context.Context, tx *gorm.DB, business *models.Business) (*models.Business, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.BusinessStatus, at time.Time) (bool, error)
	List(ctx context.Context, q listQuery) ([]models.Business, *pagination.Cursor, error)
	Counts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]counts, error)
	Summary(ctx context.Context) (Summary, error)
}

// Service exposes the business management operations.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*BusinessDTO, error)
	Create(ctx context.Context, input CreateBusinessInput) (*BusinessDTO, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*BusinessDTO, error)
	Summary(ctx context.Context) (*Summary, error)
	Register(ctx context.Context, tx *gorm.DB, info types.BusinessInfo) (uuid.UUID, error)
}

type service struct {
	repo     businessRepository
	logg     *logger.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewService wires the business service.
func NewService(repo businessRepository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "business repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:     repo,
		logg:     logg,
		validate: validation.New(),
		now:      time.Now,
	}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	q := listQuery{Search: params.Search, Limit: params.Limit}
	if raw := strings.TrimSpace(params.Status); raw != "" && raw != "all" {
		status, err := enums.ParseBusinessStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		q.Status = &status
	}
	if params.Cursor != "" {
		cursor, err := pagination.Parse(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		q.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list businesses")
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	totals, err := s.repo.Counts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count business relations")
	}

	result := &ListResult{Items: make([]BusinessDTO, 0, len(rows))}
	for i := range rows {
		result.Items = append(result.Items, FromModel(&rows[i], totals[rows[i].ID]))
	}
	if next != nil {
		result.Cursor = next.String()
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*BusinessDTO, error) {
	business, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "business not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load business")
	}
	return s.withCounts(ctx, business)
}

func (s *service) Create(ctx context.Context, input CreateBusinessInput) (*BusinessDTO, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.RepresentativeName = strings.TrimSpace(input.RepresentativeName)
	input.BusinessNumber = validation.FormatBusinessNumber(input.BusinessNumber)
	if input.Phone != nil {
		formatted := validation.FormatPhoneNumber(*input.Phone)
		input.Phone = &formatted
	}
	if verr := validation.Check(s.validate, input, "invalid business"); verr != nil {
		return nil, verr
	}

	business := input.ToModel()
	if err := s.repo.Create(ctx, business); err != nil {
		if isUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "business number already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create business")
	}
	s.logg.Info(s.logg.WithField(ctx, "business_id", business.ID.String()), "business registered")
	dto := FromModel(business, counts{})
	return &dto, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, raw string) (*BusinessDTO, error) {
	status, err := enums.ParseBusinessStatus(strings.TrimSpace(raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid business status")
	}
	ok, err := s.repo.UpdateStatus(ctx, id, status, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update business status")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "business not found")
	}
	return s.Get(ctx, id)
}

func (s *service) Summary(ctx context.Context) (*Summary, error) {
	summary, err := s.repo.Summary(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize businesses")
	}
	return &summary, nil
}

// Register links a submitted contract to the business with the same registration number,
// creating the row the first time the number is seen.
func (s *service) Register(ctx context.Context, tx *gorm.DB, info types.BusinessInfo) (uuid.UUID, error) {
	number := validation.FormatBusinessNumber(info.BusinessNumber)
	if number == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "business number required")
	}
	stored, err := s.repo.UpsertWithTx(ctx, tx, &models.Business{
		Name:               strings.TrimSpace(info.BusinessName),
		BusinessNumber:     number,
		RepresentativeName: strings.TrimSpace(info.RepresentativeName),
		BusinessType:       info.BusinessType,
		BusinessCategory:   info.BusinessCategory,
		Address:            info.BusinessAddress,
		Status:             enums.BusinessStatusActive,
	})
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register business")
	}
	return stored.ID, nil
}

func (s *service) withCounts(ctx context.Context, business *models.Business) (*BusinessDTO, error) {
	totals, err := s.repo.Counts(ctx, []uuid.UUID{business.ID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count business relations")
	}
	dto := FromModel(business, totals[business.ID])
	return &dto, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
