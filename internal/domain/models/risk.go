package models

// RiskLevel grades an approved or rejected assessment.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// CheckResult is the outcome of one independent risk check. A check that
// panics or errors internally is recorded as Passed=false with the error
// text in Message (fail-closed), never as an aborted evaluation.
type CheckResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// RiskAssessment is the aggregate verdict of one risk-gate evaluation.
// Ephemeral; one per Validate call, not persisted.
type RiskAssessment struct {
	IsApproved      bool          `json:"is_approved"`
	RiskLevel       RiskLevel     `json:"risk_level"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
	MaxPositionSize float64       `json:"max_position_size"`
	ConfidenceScore float64       `json:"confidence_score"` // 1 - risk_score
	Checks          []CheckResult `json:"checks,omitempty"`
}

// PortfolioRisk summarizes portfolio-level risk metrics. The statistical
// fields are simplified estimates, not a rigorous risk model.
type PortfolioRisk struct {
	TotalValue            float64            `json:"total_value"`
	VaR95                 float64            `json:"var_95"`
	CVaR95                float64            `json:"cvar_95"`
	MaxDrawdown           float64            `json:"max_drawdown"`
	SharpeRatio           float64            `json:"sharpe_ratio"`
	Beta                  float64            `json:"beta"`
	PositionConcentration float64            `json:"position_concentration"` // Herfindahl index
	SectorConcentration   map[string]float64 `json:"sector_concentration"`
	LiquidityRisk         float64            `json:"liquidity_risk"`
}
