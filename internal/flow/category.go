package flow

import (
	"strings"

	"golang.org/x/text/cases"
)

// Category is the intent label that selects a content strategy.
type Category string

const (
	Emergency      Category = "emergency"
	TechnicalFault Category = "technical_fault"
	EnergyAdvice   Category = "energy_advice"
)

// DefaultCategory is used whenever classification fails or returns a label
// outside the known set.
const DefaultCategory = EnergyAdvice

// Categories lists every category a router must be able to serve.
var Categories = []Category{Emergency, TechnicalFault, EnergyAdvice}

// Ticket urgency derived from the category.
const (
	UrgencyHigh = "high"
	UrgencyLow  = "low"
)

var fold = cases.Fold()

// ParseCategory maps a free-form label ("Technical Fault", "EMERGENCY",
// "energy-advice") onto a known Category.
func ParseCategory(s string) (Category, bool) {
	s = strings.Trim(strings.TrimSpace(s), `"'.`+"`")
	if s == "" {
		return "", false
	}
	s = fold.String(s)
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Urgency returns "high" for emergencies and "low" otherwise.
func (c Category) Urgency() string {
	if c == Emergency {
		return UrgencyHigh
	}
	return UrgencyLow
}

func (c Category) String() string { return string(c) }
