// Package triage turns anonymous safety reports into prioritised issues and
// drives their administrative lifecycle.
package triage

import (
	"strings"
	"unicode"

	"github.com/linesmerrill/sentinel-campus-api/models"
)

const (
	baseSeverity = 3
	minSeverity  = 1
	maxSeverity  = 10

	maxSuggestedActions = 4

	// summaries longer than this are condensed
	summaryLimit   = 200
	summaryExcerpt = 150
	summaryClauses = 2

	dispatchAction   = "Dispatch emergency response team immediately"
	defaultAction    = "Assess situation and determine response"
	hostelAction     = "Notify hostel warden"
	laboratoryAction = "Notify lab supervisor"
)

var highUrgencyKeywords = []string{
	"unconscious", "bleeding", "fire", "violence", "attack", "emergency",
	"collapse", "injured", "threat", "assault", "burning", "smoke",
	"unresponsive", "help", "danger", "weapon", "fight",
}

var moderateUrgencyKeywords = []string{
	"suspicious", "damage", "broken", "leak", "unsafe", "concern",
	"harassment", "threat", "following", "vandalism", "smell", "noise",
}

// Classification is the derived triage data attached to an issue at creation
type Classification struct {
	Priority         models.Priority `json:"priority"`
	SeverityScore    int             `json:"severityScore"`
	Summary          string          `json:"summary"`
	SuggestedActions []string        `json:"suggestedActions"`
}

// Classifier derives triage data from a report. Implementations must be
// total: every input yields a classification.
type Classifier interface {
	Classify(description string, location models.Location, incidentType *models.IncidentType) Classification
}

// RuleClassifier is the keyword and category scoring classifier
type RuleClassifier struct{}

// Classify implements Classifier
func (RuleClassifier) Classify(description string, location models.Location, incidentType *models.IncidentType) Classification {
	return Classify(description, location, incidentType)
}

// Classify scores a report and produces its priority, severity, summary and
// suggested actions. It is pure and deterministic.
func Classify(description string, location models.Location, incidentType *models.IncidentType) Classification {
	words := wordSet(strings.ToLower(description))
	highMatches := countPrefixMatches(words, highUrgencyKeywords)
	modMatches := countMatches(words, moderateUrgencyKeywords)

	severity := baseSeverity + typeWeight(incidentType) + 2*highMatches + modMatches
	severity = clamp(severity, minSeverity, maxSeverity)

	priority := decidePriority(severity, highMatches, modMatches, incidentType)

	return Classification{
		Priority:         priority,
		SeverityScore:    severity,
		Summary:          summarize(description, location, incidentType),
		SuggestedActions: suggestActions(priority, location, incidentType),
	}
}

// wordSet splits text on anything that is not a letter or digit
func wordSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// countPrefixMatches counts each keyword at most once when it begins any
// word, so "attacked" and "fires" still count
func countPrefixMatches(words map[string]struct{}, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		for w := range words {
			if strings.HasPrefix(w, kw) {
				n++
				break
			}
		}
	}
	return n
}

// countMatches counts each keyword at most once
func countMatches(words map[string]struct{}, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if _, ok := words[kw]; ok {
			n++
		}
	}
	return n
}

func typeWeight(t *models.IncidentType) int {
	if t == nil {
		return 0
	}
	switch *t {
	case models.IncidentMedical, models.IncidentFire, models.IncidentHarassment:
		return 3
	case models.IncidentSuspicious, models.IncidentInfrastructure:
		return 1
	case models.IncidentMentalHealth, models.IncidentOther:
		return 0
	}
	return 0
}

func isType(t *models.IncidentType, want ...models.IncidentType) bool {
	if t == nil {
		return false
	}
	for _, w := range want {
		if *t == w {
			return true
		}
	}
	return false
}

func decidePriority(severity, highMatches, modMatches int, t *models.IncidentType) models.Priority {
	switch {
	case severity >= 7 || highMatches >= 2 || isType(t, models.IncidentMedical, models.IncidentFire):
		return models.PriorityHigh
	case severity >= 4 || modMatches >= 2 || isType(t, models.IncidentHarassment, models.IncidentSuspicious):
		return models.PriorityModerate
	default:
		return models.PriorityLow
	}
}

func summarize(description string, location models.Location, t *models.IncidentType) string {
	clauses := make([]string, 0, summaryClauses)
	for _, c := range strings.FieldsFunc(description, isSentenceEnd) {
		if strings.TrimSpace(c) == "" {
			continue
		}
		clauses = append(clauses, c)
		if len(clauses) == summaryClauses {
			break
		}
	}
	firstPart := strings.TrimSpace(strings.Join(clauses, ". "))
	locationName := LocationName(location)

	if runes := []rune(firstPart); len(runes) > summaryLimit {
		return capitalize(IncidentTypeName(t)) + " reported at " + locationName + ". " +
			string(runes[:summaryExcerpt]) + "... Immediate assessment required."
	}

	urgency := "timely"
	if isType(t, models.IncidentMedical, models.IncidentFire) {
		urgency = "immediate"
	}
	return firstPart + ". Location: " + locationName + ". Requires " + urgency + " response."
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func suggestActions(priority models.Priority, location models.Location, t *models.IncidentType) []string {
	actions := make([]string, 0, maxSuggestedActions+1)
	if priority == models.PriorityHigh {
		actions = append(actions, dispatchAction)
	}
	actions = append(actions, typeActions(t)...)

	switch location {
	case models.LocationHostel:
		actions = append(actions, hostelAction)
	case models.LocationLaboratory:
		actions = append(actions, laboratoryAction)
	}

	if len(actions) > maxSuggestedActions {
		actions = actions[:maxSuggestedActions]
	}
	return actions
}

func typeActions(t *models.IncidentType) []string {
	if t == nil {
		return []string{defaultAction}
	}
	switch *t {
	case models.IncidentMedical:
		return []string{"Alert campus medical services", "Prepare for potential hospital transport"}
	case models.IncidentFire:
		return []string{"Verify fire suppression systems activated", "Evacuate affected area if needed"}
	case models.IncidentHarassment:
		return []string{"Alert security personnel", "Document incident for investigation"}
	case models.IncidentSuspicious:
		return []string{"Review surveillance footage", "Increase patrol in area"}
	case models.IncidentInfrastructure:
		return []string{"Schedule maintenance inspection", "Cordon off area if safety risk exists"}
	case models.IncidentMentalHealth:
		return []string{"Contact counseling services", "Ensure confidential support available"}
	case models.IncidentOther:
		return []string{defaultAction}
	}
	return []string{defaultAction}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
