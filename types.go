package portfolio

import (
	"time"
)

const Version = "0.1.0"

const (
	ResourceSkills       = "skills"
	ResourceProjects     = "projects"
	ResourceExperiences  = "experiences"
	ResourceEducation    = "education"
	ResourceHobbies      = "hobbies"
	ResourceTestimonials = "testimonials"
	ResourceContact      = "contact"
	ResourceUploads      = "uploads"
)

// OrderedResources lists every resource that carries a user-controlled display order.
var OrderedResources = []string{
	ResourceSkills,
	ResourceProjects,
	ResourceExperiences,
	ResourceEducation,
	ResourceHobbies,
	ResourceTestimonials,
}

type Action string

const (
	ActionCreate    Action = "create"
	ActionUpdate    Action = "update"
	ActionDelete    Action = "delete"
	ActionReorder   Action = "reorder"
	ActionApprove   Action = "approve"
	ActionUnapprove Action = "unapprove"
)

// Event is published after every committed mutation.
type Event struct {
	Resource string    `json:"resource"`
	Action   Action    `json:"action"`
	IDs      []string  `json:"ids"`
	At       time.Time `json:"at"`
}

type SwapRequest struct {
	First  string
	Second string
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type AdminIdentity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
