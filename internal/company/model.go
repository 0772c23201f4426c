// File: internal/company/model.go
package company

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status values accepted by the legacy companies endpoint.
const (
	StatusApplied   = "Applied"
	StatusInterview = "Interview"
	StatusSelected  = "Selected"
	StatusRejected  = "Rejected"
)

// Company is a tracked company in the legacy REST surface. The JSON
// shape, including the "_id" key, is what the endpoint's existing
// consumers already parse.
type Company struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key" json:"_id"`
	Name      string     `gorm:"type:varchar(255);not null" json:"name"`
	Deadline  *time.Time `gorm:"type:timestamptz" json:"deadline,omitempty"`
	Status    string     `gorm:"type:varchar(50);not null;default:'Applied'" json:"status"`
	Notes     string     `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// TableName overrides GORM's default pluralization.
func (Company) TableName() string {
	return "companies"
}

// CreateCompanyRequest is the POST /api/companies payload. Deadline is
// parsed manually so both bare dates and RFC 3339 stamps are accepted.
type CreateCompanyRequest struct {
	Name     string `json:"name" binding:"required"`
	Deadline string `json:"deadline" binding:"omitempty"`
	Status   string `json:"status" binding:"omitempty,oneof=Applied Interview Selected Rejected"`
	Notes    string `json:"notes" binding:"omitempty"`
}

// UpdateCompanyRequest is the PUT /api/companies/:id payload. Absent
// fields stay untouched.
type UpdateCompanyRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1"`
	Deadline *string `json:"deadline" binding:"omitempty"`
	Status   *string `json:"status" binding:"omitempty,oneof=Applied Interview Selected Rejected"`
	Notes    *string `json:"notes" binding:"omitempty"`
}

// DeleteCompanyResponse echoes the removed document's ID, matching the
// legacy endpoint's contract.
type DeleteCompanyResponse struct {
	ID uuid.UUID `json:"id"`
}

// parseDeadline accepts "2006-01-02" or RFC 3339.
func parseDeadline(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("invalid deadline format: %s", raw)
}
