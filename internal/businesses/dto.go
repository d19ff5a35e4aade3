package businesses

import (
	"time"

	"github.com/google/uuid"

	"github.com/dagym/contract-backend/pkg/db/models"
	"github.com/dagym/contract-backend/pkg/enums"
)

// BusinessDTO is a row of the business management table.
type BusinessDTO struct {
	ID                 uuid.UUID            `json:"id"`
	Name               string               `json:"businessName"`
	BusinessNumber     string               `json:"businessNumber"`
	RepresentativeName string               `json:"representativeName"`
	BusinessType       string               `json:"businessType"`
	BusinessCategory   string               `json:"businessCategory"`
	Address            string               `json:"businessAddress"`
	DetailAddress      *string              `json:"businessDetailAddress,omitempty"`
	Phone              *string              `json:"phoneNumber,omitempty"`
	Status             enums.BusinessStatus `json:"status"`
	StatusLabel        string               `json:"statusLabel"`
	ContractCount      int64                `json:"contractCount"`
	FacilityCount      int64                `json:"facilityCount"`
	RegisteredAt       time.Time            `json:"registrationDate"`
	UpdatedAt          time.Time            `json:"updatedAt"`
}

// CreateBusinessInput is the payload of a manual registration.
type CreateBusinessInput struct {
	Name               string  `json:"businessName" validate:"required,runemin=2"`
	BusinessNumber     string  `json:"businessNumber" validate:"required,bizno"`
	RepresentativeName string  `json:"representativeName" validate:"required,runemin=2"`
	BusinessType       string  `json:"businessType" validate:"required"`
	BusinessCategory   string  `json:"businessCategory" validate:"required"`
	Address            string  `json:"businessAddress" validate:"required"`
	DetailAddress      *string `json:"businessDetailAddress"`
	Phone              *string `json:"phoneNumber" validate:"omitempty,krmobile"`
}

// ListParams filters the table. Search matches the name or the registration number.
type ListParams struct {
	Search string
	Status string
	Limit  int
	Cursor string
}

type ListResult struct {
	Items  []BusinessDTO `json:"items"`
	Cursor string        `json:"cursor"`
}

// Summary feeds the stat cards above the table.
type Summary struct {
	Total           int64 `json:"totalBusinesses"`
	Active          int64 `json:"activeBusinesses"`
	TotalContracts  int64 `json:"totalContracts"`
	TotalFacilities int64 `json:"totalFacilities"`
}

// counts carries the derived per-business totals.
type counts struct {
	contracts  int64
	facilities int64
}

// FromModel maps a business row plus its derived counts.
func FromModel(m *models.Business, c counts) BusinessDTO {
	return BusinessDTO{
		ID:                 m.ID,
		Name:               m.Name,
		BusinessNumber:     m.BusinessNumber,
		RepresentativeName: m.RepresentativeName,
		BusinessType:       m.BusinessType,
		BusinessCategory:   m.BusinessCategory,
		Address:            m.Address,
		DetailAddress:      m.DetailAddress,
		Phone:              m.Phone,
		Status:             m.Status,
		StatusLabel:        m.Status.Label(),
		ContractCount:      c.contracts,
		FacilityCount:      c.facilities,
		RegisteredAt:       m.RegisteredAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// ToModel builds the row for a manual registration.
func (in CreateBusinessInput) ToModel() *models.Business {
	return &models.Business{
		Name:               in.Name,
		BusinessNumber:     in.BusinessNumber,
		RepresentativeName: in.RepresentativeName,
		BusinessType:       in.BusinessType,
		BusinessCategory:   in.BusinessCategory,
		Address:            in.Address,
		DetailAddress:      in.DetailAddress,
		Phone:              in.Phone,
		Status:             enums.BusinessStatusActive,
	}
}
