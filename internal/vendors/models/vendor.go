package models

import (
	"strings"
	"time"

	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

// Vendor is a subcontractor that negotiates order approvals.
//
// Names are unique case-insensitively. Inactive vendors keep their existing
// approvals but cannot be sent new ones.
type Vendor struct {
	ID          id.VendorID `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	Category    string      `json:"category"`
	Specialties []string    `json:"specialties"`
	Status      Status      `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (v *Vendor) IsActive() bool {
	return v.Status == StatusActive
}

// CanReceiveApprovals returns a conflict error for inactive vendors.
func (v *Vendor) CanReceiveApprovals() error {
	if !v.IsActive() {
		return dErrors.New(dErrors.CodeConflict, "vendor "+v.Name+" is inactive")
	}
	return nil
}

// Filter narrows vendor listings. An empty Status matches every vendor.
type Filter struct {
	Status Status
	Query  string
}

func (f Filter) Matches(v *Vendor) bool {
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(v.Name), q) || strings.Contains(strings.ToLower(v.Category), q) {
		return true
	}
	for _, s := range v.Specialties {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

type CreateVendorRequest struct {
	Name        string   `json:"name" validate:"required,max=128"`
	Email       string   `json:"email" validate:"omitempty,email,max=254"`
	Phone       string   `json:"phone" validate:"max=64"`
	Category    string   `json:"category" validate:"max=120"`
	Specialties []string `json:"specialties" validate:"max=32,dive,max=120"`
}

func (r *CreateVendorRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.Category = strings.TrimSpace(r.Category)
	r.Specialties = cleanSpecialties(r.Specialties)
}

// UpdateVendorRequest patches a vendor; nil fields are left unchanged.
type UpdateVendorRequest struct {
	Name        *string   `json:"name" validate:"omitnil,min=1,max=128"`
	Email       *string   `json:"email" validate:"omitnil,max=254"`
	Phone       *string   `json:"phone" validate:"omitnil,max=64"`
	Category    *string   `json:"category" validate:"omitnil,max=120"`
	Specialties *[]string `json:"specialties" validate:"omitnil,max=32,dive,max=120"`
	Status      *Status   `json:"status" validate:"omitnil,oneof=active inactive"`
}

func (r *UpdateVendorRequest) Normalize() {
	for _, p := range []*string{r.Name, r.Email, r.Phone, r.Category} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	if r.Email != nil {
		*r.Email = strings.ToLower(*r.Email)
	}
	if r.Specialties != nil {
		cleaned := cleanSpecialties(*r.Specialties)
		r.Specialties = &cleaned
	}
}

func (r *UpdateVendorRequest) Apply(v *Vendor) {
	if r.Name != nil {
		v.Name = *r.Name
	}
	if r.Email != nil {
		v.Email = *r.Email
	}
	if r.Phone != nil {
		v.Phone = *r.Phone
	}
	if r.Category != nil {
		v.Category = *r.Category
	}
	if r.Specialties != nil {
		v.Specialties = *r.Specialties
	}
	if r.Status != nil {
		v.Status = *r.Status
	}
}

// cleanSpecialties trims entries and drops blanks and case-insensitive duplicates.
func cleanSpecialties(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
