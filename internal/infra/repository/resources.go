package repository

import (
	"gorm.io/gorm"

	"github.com/totegamma/portfolio"
	"github.com/totegamma/portfolio/internal/domain"
	"github.com/totegamma/portfolio/internal/infra/database/models"
)

// TestimonialCollection orders approved testimonials only.
var TestimonialCollection = domain.Collection{
	Resource: portfolio.ResourceTestimonials,
	Membership: &domain.Membership{
		Column: "approved",
		In:     true,
		Out:    false,
	},
}

func NewSkillRepository(db *gorm.DB) *OrderedRepository[models.Skill, *models.Skill] {
	return NewOrderedRepository[models.Skill](db, domain.Collection{Resource: portfolio.ResourceSkills})
}

func NewProjectRepository(db *gorm.DB) *OrderedRepository[models.Project, *models.Project] {
	return NewOrderedRepository[models.Project](db, domain.Collection{Resource: portfolio.ResourceProjects})
}

func NewExperienceRepository(db *gorm.DB) *OrderedRepository[models.Experience, *models.Experience] {
	return NewOrderedRepository[models.Experience](db, domain.Collection{Resource: portfolio.ResourceExperiences})
}

func NewEducationRepository(db *gorm.DB) *OrderedRepository[models.Education, *models.Education] {
	return NewOrderedRepository[models.Education](db, domain.Collection{Resource: portfolio.ResourceEducation})
}

func NewHobbyRepository(db *gorm.DB) *OrderedRepository[models.Hobby, *models.Hobby] {
	return NewOrderedRepository[models.Hobby](db, domain.Collection{Resource: portfolio.ResourceHobbies})
}

func NewTestimonialRepository(db *gorm.DB) *OrderedRepository[models.Testimonial, *models.Testimonial] {
	return NewOrderedRepository[models.Testimonial](db, TestimonialCollection)
}
