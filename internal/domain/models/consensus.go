package models

import "strings"

// Recommendation is the explicit five-level label a whole-strategy
// implementation attaches to its result. Free-text recommendations from
// model back-ends are folded onto these via ParseRecommendation.
type Recommendation string

const (
	RecStrongBuy Recommendation = "STRONG_BUY"
	RecBuy       Recommendation = "BUY"
	RecHold      Recommendation = "HOLD"
	RecReduce    Recommendation = "REDUCE"
	RecSell      Recommendation = "SELL"
)

// RecommendationOrder fixes the tally precedence for free-text matching:
// first substring match in this order wins.
var RecommendationOrder = []Recommendation{RecStrongBuy, RecBuy, RecHold, RecReduce, RecSell}

// ParseRecommendation maps free text onto the fixed label set by substring
// matching in declaration order. Unmatched text maps to HOLD.
func ParseRecommendation(s string) Recommendation {
	up := strings.ToUpper(s)
	for _, r := range RecommendationOrder {
		if strings.Contains(up, string(r)) {
			return r
		}
	}
	return RecHold
}

// StrategyResult mirrors TradeSignal but is produced by a whole-strategy
// implementation rather than a single analysis dimension. It is the unit
// the consensus aggregator consumes.
type StrategyResult struct {
	Symbol         string         `json:"symbol"`
	Action         Action         `json:"action"`
	Confidence     float64        `json:"confidence"`
	TargetPrice    float64        `json:"target_price"`
	StopLoss       float64        `json:"stop_loss"`
	Reasoning      string         `json:"reasoning"`
	StrategyName   string         `json:"strategy_name"`
	Recommendation Recommendation `json:"recommendation"`
	Err            string         `json:"error,omitempty"` // non-empty marks the result invalid
}

// ConsensusReport is the aggregate of N StrategyResults.
type ConsensusReport struct {
	Symbol                     string                    `json:"symbol"`
	ConsensusRecommendation    Recommendation            `json:"consensus_recommendation"`
	ConsensusAction            Action                    `json:"consensus_action"`
	RecommendationDistribution map[Recommendation]int    `json:"recommendation_distribution"`
	AverageTargetPrice         float64                   `json:"average_target_price"`
	AverageConfidence          float64                   `json:"average_confidence"`
	ModelCount                 int                       `json:"model_count"`
	IndividualResults          map[string]StrategyResult `json:"individual_results"`
}
