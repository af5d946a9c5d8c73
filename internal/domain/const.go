package domain

type ctxKey string

const (
	RequesterIdCtxKey    ctxKey = "portfolio-requesterId"
	RequesterEmailCtxKey ctxKey = "portfolio-requesterEmail"
)

const (
	// EventChannel is the redis channel change events are published on.
	EventChannel = "portfolio:events"
)

const (
	RoleAdmin = "admin"
)
