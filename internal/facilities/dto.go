package facilities

import (
	"time"

	"github.com/google/uuid"

	"github.com/dagym/contract-backend/pkg/db/models"
	"github.com/dagym/contract-backend/pkg/enums"
)

type FacilityDTO struct {
	ID             uuid.UUID            `json:"id"`
	BusinessID     uuid.UUID            `json:"businessId"`
	Name           string               `json:"name"`
	FacilityType   string               `json:"type"`
	Status         enums.FacilityStatus `json:"status"`
	StatusLabel    string               `json:"statusLabel"`
	MemberCount    int                  `json:"memberCount"`
	MonthlyRevenue int64                `json:"revenue"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

type CreateFacilityInput struct {
	BusinessID     uuid.UUID `json:"businessId" validate:"required"`
	Name           string    `json:"name" validate:"required,runemin=2"`
	FacilityType   string    `json:"type" validate:"required"`
	MemberCount    int       `json:"memberCount" validate:"gte=0"`
	MonthlyRevenue int64     `json:"revenue" validate:"gte=0"`
}

// UpdateFacilityInput patches the fields that are set.
type UpdateFacilityInput struct {
	Name           *string `json:"name" validate:"omitempty,runemin=2"`
	FacilityType   *string `json:"type" validate:"omitempty,min=1"`
	Status         *string `json:"status" validate:"omitempty,oneof=operating closed"`
	MemberCount    *int    `json:"memberCount" validate:"omitempty,gte=0"`
	MonthlyRevenue *int64  `json:"revenue" validate:"omitempty,gte=0"`
}

type ListParams struct {
	BusinessID *uuid.UUID
	Status     string
	Limit      int
	Cursor     string
}

type ListResult struct {
	Items  []FacilityDTO `json:"items"`
	Cursor string        `json:"cursor"`
}

type Summary struct {
	Total        int64 `json:"totalFacilities"`
	Operating    int64 `json:"operatingFacilities"`
	TotalMembers int64 `json:"totalMembers"`
	TotalRevenue int64 `json:"totalRevenue"`
}

func FromModel(m *models.Facility) FacilityDTO {
	return FacilityDTO{
		ID:             m.ID,
		BusinessID:     m.BusinessID,
		Name:           m.Name,
		FacilityType:   m.FacilityType,
		Status:         m.Status,
		StatusLabel:    m.Status.Label(),
		MemberCount:    m.MemberCount,
		MonthlyRevenue: m.MonthlyRevenue,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
