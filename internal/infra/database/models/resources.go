package models

import (
	"strings"

	"gorm.io/datatypes"

	"github.com/totegamma/portfolio/internal/domain"
)

type Skill struct {
	Ordered
	Name     string `json:"name" gorm:"type:text;not null"`
	Category string `json:"category" gorm:"type:text"`
	Level    int    `json:"level"`
	Icon     string `json:"icon" gorm:"type:text"`
}

func (s *Skill) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return domain.Required("name")
	}
	if s.Level < 0 || s.Level > 100 {
		return domain.ValidationError{Field: "level", Reason: "must be between 0 and 100"}
	}
	return nil
}

type Project struct {
	Ordered
	Title        string                      `json:"title" gorm:"type:text;not null"`
	Description  string                      `json:"description" gorm:"type:text;not null"`
	ImageKey     string                      `json:"imageKey" gorm:"type:text"`
	ImageURL     string                      `json:"imageUrl" gorm:"type:text"`
	GithubURL    string                      `json:"githubUrl" gorm:"type:text"`
	DemoURL      string                      `json:"demoUrl" gorm:"type:text"`
	Technologies datatypes.JSONSlice[string] `json:"technologies"`
	Featured     bool                        `json:"featured" gorm:"not null;default:false"`
}

func (p *Project) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return domain.Required("title")
	}
	if strings.TrimSpace(p.Description) == "" {
		return domain.Required("description")
	}
	return nil
}

func (p *Project) StorageKeys() []string {
	if p.ImageKey == "" {
		return nil
	}
	return []string{p.ImageKey}
}

type Experience struct {
	Ordered
	Company     string `json:"company" gorm:"type:text;not null"`
	Role        string `json:"role" gorm:"type:text;not null"`
	Location    string `json:"location" gorm:"type:text"`
	StartDate   string `json:"startDate" gorm:"type:text;not null"`
	EndDate     string `json:"endDate" gorm:"type:text"`
	Current     bool   `json:"current" gorm:"not null;default:false"`
	Description string `json:"description" gorm:"type:text"`
}

func (e *Experience) Validate() error {
	if strings.TrimSpace(e.Company) == "" {
		return domain.Required("company")
	}
	if strings.TrimSpace(e.Role) == "" {
		return domain.Required("role")
	}
	return validatePeriod(e.StartDate, e.EndDate)
}

type Education struct {
	Ordered
	Institution  string `json:"institution" gorm:"type:text;not null"`
	Degree       string `json:"degree" gorm:"type:text;not null"`
	FieldOfStudy string `json:"fieldOfStudy" gorm:"type:text"`
	StartDate    string `json:"startDate" gorm:"type:text;not null"`
	EndDate      string `json:"endDate" gorm:"type:text"`
	Description  string `json:"description" gorm:"type:text"`
}

func (e *Education) Validate() error {
	if strings.TrimSpace(e.Institution) == "" {
		return domain.Required("institution")
	}
	if strings.TrimSpace(e.Degree) == "" {
		return domain.Required("degree")
	}
	return validatePeriod(e.StartDate, e.EndDate)
}

type Hobby struct {
	Ordered
	Name        string `json:"name" gorm:"type:text;not null"`
	Description string `json:"description" gorm:"type:text"`
	ImageKey    string `json:"imageKey" gorm:"type:text"`
	ImageURL    string `json:"imageUrl" gorm:"type:text"`
}

func (h *Hobby) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return domain.Required("name")
	}
	return nil
}

func (h *Hobby) StorageKeys() []string {
	if h.ImageKey == "" {
		return nil
	}
	return []string{h.ImageKey}
}

type Testimonial struct {
	Ordered
	Author    string `json:"author" gorm:"type:text;not null"`
	Role      string `json:"role" gorm:"type:text"`
	Company   string `json:"company" gorm:"type:text"`
	Content   string `json:"content" gorm:"type:text;not null"`
	AvatarURL string `json:"avatarUrl" gorm:"type:text"`
	Approved  bool   `json:"approved" gorm:"not null;default:false;index"`
}

func (t *Testimonial) Validate() error {
	if strings.TrimSpace(t.Author) == "" {
		return domain.Required("author")
	}
	if strings.TrimSpace(t.Content) == "" {
		return domain.Required("content")
	}
	if len(t.Content) > 2000 {
		return domain.ValidationError{Field: "content", Reason: "must be at most 2000 characters"}
	}
	return nil
}

// dates are "YYYY-MM" or "YYYY-MM-DD"; an empty end date means ongoing.
func validatePeriod(start, end string) error {
	if strings.TrimSpace(start) == "" {
		return domain.Required("startDate")
	}
	if !isDate(start) {
		return domain.ValidationError{Field: "startDate", Reason: "must be YYYY-MM or YYYY-MM-DD"}
	}
	if end == "" {
		return nil
	}
	if !isDate(end) {
		return domain.ValidationError{Field: "endDate", Reason: "must be YYYY-MM or YYYY-MM-DD"}
	}
	if end < start {
		return domain.ValidationError{Field: "endDate", Reason: "must not be before startDate"}
	}
	return nil
}

func isDate(s string) bool {
	if len(s) != 7 && len(s) != 10 {
		return false
	}
	for i, r := range s {
		switch i {
		case 4, 7:
			if r != '-' {
				return false
			}
		default:
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

func (t *Testimonial) InSubset() bool {
	return t.Approved
}

func (t *Testimonial) SetInSubset(in bool) {
	t.Approved = in
}
