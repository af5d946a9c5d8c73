package domain

import "time"

type Config struct {
	ListenAddr         string
	PublicBaseURL      string
	AllowedOrigins     []string
	Serializable       bool
	RevalidationURL    string
	RevalidationSecret string
	RateLimit          RateLimit
}

type RateLimit struct {
	Requests int
	Window   time.Duration
}
