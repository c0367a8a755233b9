package domain

// TargetingRule narrows who should see a campaign. Rules are evaluated in
// the order the request lists them, so the slice order is significant.
type TargetingRule struct {
	Type    string   `json:"type" validate:"required"`
	Values  []string `json:"values" validate:"required,min=1,dive,required"`
	Exclude bool     `json:"exclude,omitempty"`
}
