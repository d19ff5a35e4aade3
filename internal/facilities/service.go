package facilities

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dagym/contract-backend/pkg/db/models"
	"github.com/dagym/contract-backend/pkg/enums"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/pagination"
	"github.com/dagym/contract-backend/pkg/validation"
)

type facilityRepository interface {
	Create(ctx context.Context, facility *models.Facility) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Facility, error)
	BusinessExists(ctx context.Context, businessID uuid.UUID) (bool, error)
	Update(ctx context.Context, facility *models.Facility) error
	List(ctx context.Context, q listQuery) ([]models.Facility, *pagination.Cursor, error)
	Summary(ctx context.Context, businessID *uuid.UUID) (Summary, error)
}

// Service exposes facility management.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Create(ctx context.Context, input CreateFacilityInput) (*FacilityDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateFacilityInput) (*FacilityDTO, error)
	Summary(ctx context.Context, businessID *uuid.UUID) (*Summary, error)
}

type service struct {
	repo     facilityRepository
	validate *validator.Validate
}

func NewService(repo facilityRepository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "facility repository required")
	}
	return &service{repo: repo, validate: validation.New()}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	q := listQuery{BusinessID: params.BusinessID, Limit: params.Limit}
	if raw := strings.TrimSpace(params.Status); raw != "" && raw != "all" {
		status, err := enums.ParseFacilityStatus(raw)
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list facilities")
	}
	result := &ListResult{Items: make([]FacilityDTO, 0, len(rows))}
	for i := range rows {
		result.Items = append(result.Items, FromModel(&rows[i]))
	}
	if next != nil {
		result.Cursor = next.String()
	}
	return result, nil
}

func (s *service) Create(ctx context.Context, input CreateFacilityInput) (*FacilityDTO, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.FacilityType = strings.TrimSpace(input.FacilityType)
	if verr := validation.Check(s.validate, input, "invalid facility"); verr != nil {
		return nil, verr
	}
	exists, err := s.repo.BusinessExists(ctx, input.BusinessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load business")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "business not found")
	}

	facility := &models.Facility{
		BusinessID:     input.BusinessID,
		Name:           input.Name,
		FacilityType:   input.FacilityType,
		Status:         enums.FacilityStatusOperating,
		MemberCount:    input.MemberCount,
		MonthlyRevenue: input.MonthlyRevenue,
	}
	if err := s.repo.Create(ctx, facility); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create facility")
	}
	dto := FromModel(facility)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateFacilityInput) (*FacilityDTO, error) {
	if verr := validation.Check(s.validate, input, "invalid facility"); verr != nil {
		return nil, verr
	}
	facility, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "facility not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load facility")
	}

	if input.Name != nil {
		facility.Name = strings.TrimSpace(*input.Name)
	}
	if input.FacilityType != nil {
		facility.FacilityType = strings.TrimSpace(*input.FacilityType)
	}
	if input.Status != nil {
		facility.Status = enums.FacilityStatus(*input.Status)
	}
	if input.MemberCount != nil {
		facility.MemberCount = *input.MemberCount
	}
	if input.MonthlyRevenue != nil {
		facility.MonthlyRevenue = *input.MonthlyRevenue
	}
	if err := s.repo.Update(ctx, facility); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update facility")
	}
	dto := FromModel(facility)
	return &dto, nil
}

func (s *service) Summary(ctx context.Context, businessID *uuid.UUID) (*Summary, error) {
	summary, err := s.repo.Summary(ctx, businessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize facilities")
	}
	return &summary, nil
}
