package models

import "time"

// Location is where on campus an incident took place
type Location string

// Locations a report may be filed against
const (
	LocationClassroom  Location = "classroom"
	LocationHostel     Location = "hostel"
	LocationLibrary    Location = "library"
	LocationCafeteria  Location = "cafeteria"
	LocationLaboratory Location = "laboratory"
	LocationWashroom   Location = "washroom"
	LocationParking    Location = "parking"
	LocationPlayground Location = "playground"
	LocationOther      Location = "other"
)

// Locations lists every location in display order
var Locations = []Location{
	LocationClassroom,
	LocationHostel,
	LocationLibrary,
	LocationCafeteria,
	LocationLaboratory,
	LocationWashroom,
	LocationParking,
	LocationPlayground,
	LocationOther,
}

// Valid reports whether l is one of the known locations
func (l Location) Valid() bool {
	switch l {
	case LocationClassroom, LocationHostel, LocationLibrary, LocationCafeteria,
		LocationLaboratory, LocationWashroom, LocationParking, LocationPlayground,
		LocationOther:
		return true
	}
	return false
}

// IncidentType is the reporter's own categorisation of an incident
type IncidentType string

// Incident types a reporter may pick
const (
	IncidentMedical        IncidentType = "medical"
	IncidentHarassment     IncidentType = "harassment"
	IncidentFire           IncidentType = "fire"
	IncidentInfrastructure IncidentType = "infrastructure"
	IncidentSuspicious     IncidentType = "suspicious"
	IncidentMentalHealth   IncidentType = "mental_health"
	IncidentOther          IncidentType = "other"
)

// IncidentTypes lists every incident type in display order
var IncidentTypes = []IncidentType{
	IncidentMedical,
	IncidentHarassment,
	IncidentFire,
	IncidentInfrastructure,
	IncidentSuspicious,
	IncidentMentalHealth,
	IncidentOther,
}

// Valid reports whether t is one of the known incident types
func (t IncidentType) Valid() bool {
	switch t {
	case IncidentMedical, IncidentHarassment, IncidentFire, IncidentInfrastructure,
		IncidentSuspicious, IncidentMentalHealth, IncidentOther:
		return true
	}
	return false
}

// Priority is the coarse triage bucket used to order the dashboard
type Priority string

// Priorities, most urgent first
const (
	PriorityHigh     Priority = "high"
	PriorityModerate Priority = "moderate"
	PriorityLow      Priority = "low"
)

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityModerate, PriorityLow:
		return true
	}
	return false
}

// Rank orders priorities for display: high=0, moderate=1, low=2.
// Unknown values sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityModerate:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// Status is the administrative workflow state of an issue
type Status string

// Statuses an issue can be in. Any status may follow any other.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Issue holds the structure for a submitted safety report along with its
// derived triage fields and administrative state
type Issue struct {
	ID               string        `json:"id" bson:"_id"`
	Location         Location      `json:"location" bson:"location"`
	CustomLocation   *string       `json:"customLocation,omitempty" bson:"customLocation,omitempty"`
	IncidentType     *IncidentType `json:"incidentType,omitempty" bson:"incidentType,omitempty"`
	Description      string        `json:"description" bson:"description"`
	IncidentDateTime time.Time     `json:"incidentDateTime" bson:"incidentDateTime"`
	CreatedAt        time.Time     `json:"createdAt" bson:"createdAt"`

	// derived at creation, never recomputed
	Priority         Priority `json:"priority" bson:"priority"`
	SeverityScore    int      `json:"severityScore" bson:"severityScore"`
	Summary          string   `json:"summary" bson:"summary"`
	SuggestedActions []string `json:"suggestedActions" bson:"suggestedActions"`

	Status     Status     `json:"status" bson:"status"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
	AssignedTo *string    `json:"assignedTo,omitempty" bson:"assignedTo,omitempty"`
	AdminNotes *string    `json:"adminNotes,omitempty" bson:"adminNotes,omitempty"`
	UpdatedAt  time.Time  `json:"updatedAt" bson:"updatedAt"`
	Version    int64      `json:"version" bson:"version"`
}

// Clone returns a deep copy of the issue so callers never share mutable
// state with a store
func (i *Issue) Clone() *Issue {
	if i == nil {
		return nil
	}
	c := *i
	c.CustomLocation = cloneString(i.CustomLocation)
	c.AssignedTo = cloneString(i.AssignedTo)
	c.AdminNotes = cloneString(i.AdminNotes)
	if i.IncidentType != nil {
		t := *i.IncidentType
		c.IncidentType = &t
	}
	if i.ResolvedAt != nil {
		r := *i.ResolvedAt
		c.ResolvedAt = &r
	}
	if i.SuggestedActions != nil {
		c.SuggestedActions = append([]string(nil), i.SuggestedActions...)
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// IssueSubmission is the body of an anonymous report. Either IncidentDateTime
// or both Date and Time must be supplied.
type IssueSubmission struct {
	Location         Location      `json:"location"`
	CustomLocation   string        `json:"customLocation,omitempty"`
	IncidentType     *IncidentType `json:"incidentType,omitempty"`
	Description      string        `json:"description"`
	IncidentDateTime *time.Time    `json:"incidentDateTime,omitempty"`
	Date             string        `json:"date,omitempty"`
	Time             string        `json:"time,omitempty"`
}

// IssueUpdate is the body an administrator sends to change an issue
type IssueUpdate struct {
	Status          Status  `json:"status"`
	Notes           *string `json:"notes,omitempty"`
	AssignedTo      *string `json:"assignedTo,omitempty"`
	ExpectedVersion *int64  `json:"expectedVersion,omitempty"`
}

// IssueEvent is broadcast to dashboard listeners whenever an issue changes
type IssueEvent struct {
	Event string `json:"event"`
	Issue *Issue `json:"data"`
}

// Issue event names
const (
	IssueCreatedEvent = "issue.created"
	IssueUpdatedEvent = "issue.updated"
)
