package allocation

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/acalderon/cartera/internal/domain"
	"github.com/acalderon/cartera/internal/modules/portfolio"
)

// rebalanceThreshold is the minimum deviation (percentage points) before a
// recommendation is emitted; above severeThreshold it is marked high.
const (
	rebalanceThreshold = 5.0
	severeThreshold    = 15.0
)

// Service builds diversification reports against the configured targets.
type Service struct {
	repo      *Repository
	portfolio *portfolio.Service
	log       zerolog.Logger
}

// NewService creates a new allocation service
func NewService(repo *Repository, portfolioSvc *portfolio.Service, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		portfolio: portfolioSvc,
		log:       log.With().Str("service", "allocation").Logger(),
	}
}

// ClassAllocation is one bucket's current standing versus its target.
type ClassAllocation struct {
	AssetClass   string  `json:"asset_class"`
	Name         string  `json:"name"`
	Color        string  `json:"color"`
	TargetPct    float64 `json:"target_pct"`
	CurrentPct   float64 `json:"current_pct"`
	CurrentValue float64 `json:"current_value"`
	DiffPct      float64 `json:"diff_pct"`
}

// Report is the full current-vs-target allocation view.
type Report struct {
	Classes    []ClassAllocation `json:"classes"`
	TotalValue float64           `json:"total_value"`
}

// Recommendation suggests reducing or increasing one bucket.
type Recommendation struct {
	AssetClass string  `json:"asset_class"`
	Name       string  `json:"name"`
	Action     string  `json:"action"` // "reduce" or "increase"
	CurrentPct float64 `json:"current_pct"`
	TargetPct  float64 `json:"target_pct"`
	DiffPct    float64 `json:"diff_pct"`
	Amount     float64 `json:"amount"`
	Severity   string  `json:"severity"` // "medium" or "high"
}

// Suggestion distributes a new investment towards the target model.
type Suggestion struct {
	AssetClass      string  `json:"asset_class"`
	Name            string  `json:"name"`
	CurrentValue    float64 `json:"current_value"`
	IdealFutureVal  float64 `json:"ideal_future_value"`
	Deficit         float64 `json:"deficit"`
	SuggestedAmount float64 `json:"suggested_amount"`
	SuggestedPct    float64 `json:"suggested_pct"`
}

// Report computes the current allocation per bucket against the targets.
// Unpriced positions contribute nothing to the percentages; they are visible
// through the breakdown's missing-price counters instead of skewing weights.
func (s *Service) Report(ctx context.Context) (*Report, error) {
	breakdowns, err := s.portfolio.ByAssetClass(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate by asset class: %w", err)
	}

	targets, err := s.repo.GetTargets()
	if err != nil {
		return nil, err
	}

	currentValues := make(map[string]float64, len(breakdowns))
	totalValue := 0.0
	for _, b := range breakdowns {
		currentValues[b.Group] = b.CurrentValue
		totalValue += b.CurrentValue
	}

	report := &Report{TotalValue: round2(totalValue)}
	for _, class := range Classes {
		value := currentValues[class.Code]
		currentPct := 0.0
		if totalValue > 0 {
			currentPct = value / totalValue * 100
		}
		target := targets[class.Code]

		report.Classes = append(report.Classes, ClassAllocation{
			AssetClass:   class.Code,
			Name:         class.Name,
			Color:        class.Color,
			TargetPct:    target,
			CurrentPct:   round2(currentPct),
			CurrentValue: round2(value),
			DiffPct:      round2(currentPct - target),
		})
	}

	// Anything tagged with an unknown or missing bucket still shows up.
	if value, ok := currentValues[Unclassified]; ok && value > 0 {
		currentPct := 0.0
		if totalValue > 0 {
			currentPct = value / totalValue * 100
		}
		info := ClassByCode(Unclassified)
		report.Classes = append(report.Classes, ClassAllocation{
			AssetClass:   Unclassified,
			Name:         info.Name,
			Color:        info.Color,
			CurrentPct:   round2(currentPct),
			CurrentValue: round2(value),
			DiffPct:      round2(currentPct),
		})
	}

	return report, nil
}

// Recommendations lists buckets deviating more than the threshold from
// their target, largest deviation first.
func (s *Service) Recommendations(ctx context.Context) ([]Recommendation, error) {
	report, err := s.Report(ctx)
	if err != nil {
		return nil, err
	}

	var recs []Recommendation
	for _, class := range report.Classes {
		if class.AssetClass == Unclassified {
			continue
		}
		diff := class.CurrentPct - class.TargetPct
		if math.Abs(diff) <= rebalanceThreshold {
			continue
		}

		action := "increase"
		if diff > 0 {
			action = "reduce"
		}
		severity := "medium"
		if math.Abs(diff) > severeThreshold {
			severity = "high"
		}

		recs = append(recs, Recommendation{
			AssetClass: class.AssetClass,
			Name:       class.Name,
			Action:     action,
			CurrentPct: class.CurrentPct,
			TargetPct:  class.TargetPct,
			DiffPct:    round2(diff),
			Amount:     round2(math.Abs(diff) / 100 * report.TotalValue),
			Severity:   severity,
		})
	}

	sort.Slice(recs, func(i, j int) bool {
		return math.Abs(recs[i].DiffPct) > math.Abs(recs[j].DiffPct)
	})

	return recs, nil
}

// SuggestInvestment distributes newInvestment across underweight buckets in
// proportion to their deficit against the post-investment target values.
func (s *Service) SuggestInvestment(ctx context.Context, newInvestment float64) ([]Suggestion, error) {
	if newInvestment <= 0 {
		return nil, domain.Validationf("investment amount must be greater than 0")
	}

	report, err := s.Report(ctx)
	if err != nil {
		return nil, err
	}
	futureTotal := report.TotalValue + newInvestment

	var suggestions []Suggestion
	totalDeficit := 0.0
	for _, class := range report.Classes {
		if class.TargetPct <= 0 || class.AssetClass == Unclassified {
			continue
		}

		idealFuture := class.TargetPct / 100 * futureTotal
		deficit := idealFuture - class.CurrentValue
		if deficit <= 0 {
			continue
		}

		suggestions = append(suggestions, Suggestion{
			AssetClass:     class.AssetClass,
			Name:           class.Name,
			CurrentValue:   class.CurrentValue,
			IdealFutureVal: round2(idealFuture),
			Deficit:        round2(deficit),
		})
		totalDeficit += deficit
	}

	if totalDeficit > 0 {
		for i := range suggestions {
			share := suggestions[i].Deficit / totalDeficit
			suggestions[i].SuggestedAmount = round2(share * newInvestment)
			suggestions[i].SuggestedPct = round2(share * 100)
		}
	}

	sort.Slice(suggestions, func(i, j int) bool {
		return suggestions[i].Deficit > suggestions[j].Deficit
	})

	return suggestions, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
