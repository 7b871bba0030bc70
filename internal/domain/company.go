package domain

import "time"

// AccessGrade is a company's subscription grade.
type AccessGrade string

const (
	GradeFree     AccessGrade = "free"
	GradeStandard AccessGrade = "standard"
	GradeBusiness AccessGrade = "business"
)

// ParseAccessGrade validates and converts a stored grade value.
func ParseAccessGrade(s string) (AccessGrade, error) {
	switch AccessGrade(s) {
	case GradeFree, GradeStandard, GradeBusiness:
		return AccessGrade(s), nil
	default:
		return "", ErrInvalidGrade
	}
}

// Subscribed reports whether the grade entitles access to
// subscription-gated tracks.
func (g AccessGrade) Subscribed() bool {
	return g == GradeStandard || g == GradeBusiness
}

// Company is a licensed B2B customer. Registration, billing and grade
// changes are owned by the account service; the play engine reads it.
type Company struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	Grade              AccessGrade `json:"grade"`
	SubscriptionActive bool        `json:"subscription_active"`
	CreatedAt          time.Time   `json:"created_at"`
}

// EffectiveGrade returns the grade the policy should evaluate: a lapsed
// subscription demotes the company to free.
func (c *Company) EffectiveGrade() AccessGrade {
	if !c.SubscriptionActive {
		return GradeFree
	}
	return c.Grade
}
