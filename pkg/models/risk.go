package models

// RiskLevel classifies how dangerous a plan is to execute unattended.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskAssessment is attached to a plan's metadata under PlanMetaRiskScore.
type RiskAssessment struct {
	Level       RiskLevel `json:"level"`
	Score       float64   `json:"score"`
	Reasoning   string    `json:"reasoning,omitempty"`
	Mitigations []string  `json:"mitigations,omitempty"`
}

// RiskMode selects the confirmation policy applied to scored plans.
type RiskMode string

const (
	// RiskModeStrict requires confirmation for anything above LOW.
	RiskModeStrict RiskMode = "strict"
	// RiskModeBalanced requires confirmation for HIGH plans. Default.
	RiskModeBalanced RiskMode = "balanced"
	// RiskModePermissive confirms only near-certain HIGH plans (score > 0.95).
	RiskModePermissive RiskMode = "permissive"
)

// Valid reports whether the mode is one of the recognized policies.
func (m RiskMode) Valid() bool {
	switch m {
	case RiskModeStrict, RiskModeBalanced, RiskModePermissive:
		return true
	}
	return false
}
