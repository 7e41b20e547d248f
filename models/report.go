package models

import "time"

// WeeklyReport summarises the issues created during one week
type WeeklyReport struct {
	WeekStart        time.Time       `json:"weekStart"`
	WeekEnd          time.Time       `json:"weekEnd"`
	TotalIssues      int             `json:"totalIssues"`
	HighPriority     int             `json:"highPriority"`
	ModeratePriority int             `json:"moderatePriority"`
	LowPriority      int             `json:"lowPriority"`
	ResolvedCount    int             `json:"resolvedCount"`
	PendingCount     int             `json:"pendingCount"`
	TopLocations     []LocationCount `json:"topLocations"`
	TopTypes         []TypeCount     `json:"topTypes"`
	Insights         []string        `json:"insights"`
	GeneratedAt      time.Time       `json:"generatedAt"`
}

// LocationCount is a location display name and how many issues it had
type LocationCount struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

// TypeCount is an incident type display name and how many issues it had
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// DashboardStats holds the counters shown at the top of the admin dashboard
type DashboardStats struct {
	Total      int `json:"total"`
	High       int `json:"high"`
	Moderate   int `json:"moderate"`
	Low        int `json:"low"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Resolved   int `json:"resolved"`
}

// HealthCheckResponse returns the health check response, including which
// issue store backend is in use
type HealthCheckResponse struct {
	Alive bool   `json:"alive"`
	Store string `json:"store,omitempty"`
}
