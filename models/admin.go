package models

import "time"

// AdminRole is the kind of staff member operating the dashboard
type AdminRole string

// Roles an administrator can sign up with
const (
	RoleSecurity   AdminRole = "security"
	RoleFaculty    AdminRole = "faculty"
	RoleManagement AdminRole = "management"
)

// Valid reports whether r is a known role
func (r AdminRole) Valid() bool {
	switch r {
	case RoleSecurity, RoleFaculty, RoleManagement:
		return true
	}
	return false
}

// Admin represents an administrative user who triages issues. The counters
// are display data and are not maintained by the triage core.
type Admin struct {
	ID                  string    `bson:"_id" json:"id"`
	Email               string    `bson:"email" json:"email"`
	Name                string    `bson:"name" json:"name"`
	Role                AdminRole `bson:"role" json:"role"`
	Phone               string    `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash        string    `bson:"passwordHash" json:"-"`
	IssuesHandled       int       `bson:"issuesHandled" json:"issuesHandled"`
	AverageResponseTime int       `bson:"averageResponseTime" json:"averageResponseTime"` // minutes
	ResolutionRate      int       `bson:"resolutionRate" json:"resolutionRate"`           // percent
	CreatedAt           time.Time `bson:"createdAt" json:"createdAt"`
}

// AdminSignupRequest is the body used to create a new administrator
type AdminSignupRequest struct {
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Name     string    `json:"name"`
	Role     AdminRole `json:"role"`
	Phone    string    `json:"phone,omitempty"`
}

// AdminTokenResponse is returned after a successful login or signup
type AdminTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Admin     *Admin    `json:"admin"`
}
