package triage

import "github.com/linesmerrill/sentinel-campus-api/models"

// LocationName is the name used for a location inside generated summaries.
// "other" resolves to the campus as a whole.
func LocationName(l models.Location) string {
	switch l {
	case models.LocationClassroom:
		return "Classroom"
	case models.LocationHostel:
		return "Hostel"
	case models.LocationLibrary:
		return "Library"
	case models.LocationCafeteria:
		return "Cafeteria"
	case models.LocationLaboratory:
		return "Laboratory"
	case models.LocationWashroom:
		return "Washroom"
	case models.LocationParking:
		return "Parking Area"
	case models.LocationPlayground:
		return "Playground"
	case models.LocationOther:
		return "Campus"
	}
	return "Campus"
}

// LocationLabel is the label shown for a location in dashboards and reports
func LocationLabel(l models.Location) string {
	if l == models.LocationOther {
		return "Other"
	}
	return LocationName(l)
}

// IncidentTypeName is the lower case phrase used in generated summaries
func IncidentTypeName(t *models.IncidentType) string {
	if t == nil {
		return "incident"
	}
	switch *t {
	case models.IncidentMedical:
		return "medical emergency"
	case models.IncidentHarassment:
		return "harassment incident"
	case models.IncidentFire:
		return "fire/electrical hazard"
	case models.IncidentInfrastructure:
		return "infrastructure issue"
	case models.IncidentSuspicious:
		return "suspicious activity"
	case models.IncidentMentalHealth:
		return "mental health concern"
	case models.IncidentOther:
		return "incident"
	}
	return "incident"
}

// IncidentTypeLabel is the label shown for an incident type in dashboards
// and reports
func IncidentTypeLabel(t models.IncidentType) string {
	switch t {
	case models.IncidentMedical:
		return "Medical Emergency"
	case models.IncidentHarassment:
		return "Harassment / Violence"
	case models.IncidentFire:
		return "Fire / Electrical Hazard"
	case models.IncidentInfrastructure:
		return "Infrastructure Damage"
	case models.IncidentSuspicious:
		return "Suspicious Activity"
	case models.IncidentMentalHealth:
		return "Mental Health Concern"
	case models.IncidentOther:
		return "Other"
	}
	return "Other"
}
