// Package budget enforces process-wide resource caps on a SearchPlan:
// validating a plan against those caps and, when it fails, adjusting it down
// to fit rather than aborting the run.
package budget

import (
	"fmt"

	"github.com/kinlink/lineage/model"
)

// Policy holds the process-wide caps a plan must respect.
type Policy struct {
	MaxTotalSeconds float64
	MaxSources      int
	MaxResults      int
}

// Default returns the policy used when no caps are supplied via options.
func Default() Policy {
	return Policy{MaxTotalSeconds: 600, MaxSources: 20, MaxResults: 500}
}

// Validate reports whether plan satisfies every cap. When it doesn't, ok is
// false and reason names the first violation found, checked in the order
// total budget, source count, then total max_results.
func (p Policy) Validate(plan model.SearchPlan) (ok bool, reason string) {
	if plan.TotalBudgetSeconds > p.MaxTotalSeconds {
		return false, fmt.Sprintf("total_budget_seconds %.1f exceeds cap %.1f", plan.TotalBudgetSeconds, p.MaxTotalSeconds)
	}
	if len(plan.SourceBudgets) > p.MaxSources {
		return false, fmt.Sprintf("source count %d exceeds cap %d", len(plan.SourceBudgets), p.MaxSources)
	}
	if sum := plan.SumMaxResults(); sum > p.MaxResults {
		return false, fmt.Sprintf("sum(max_results) %d exceeds cap %d", sum, p.MaxResults)
	}
	return true, ""
}

// Adjust truncates plan's source list to MaxSources, scales every
// remaining source's max_results proportionally so the sum fits MaxResults,
// and clamps total_budget_seconds. Source ordering (already priority-sorted
// by the planner) is preserved throughout.
func (p Policy) Adjust(plan model.SearchPlan) model.SearchPlan {
	adjusted := plan
	adjusted.SourceBudgets = append([]model.SourceBudget(nil), plan.SourceBudgets...)

	if len(adjusted.SourceBudgets) > p.MaxSources {
		adjusted.SourceBudgets = adjusted.SourceBudgets[:p.MaxSources]
	}

	if sum := sumMaxResults(adjusted.SourceBudgets); sum > p.MaxResults && sum > 0 {
		scale := float64(p.MaxResults) / float64(sum)
		for i := range adjusted.SourceBudgets {
			scaled := int(float64(adjusted.SourceBudgets[i].MaxResults) * scale)
			if scaled < 1 {
				scaled = 1
			}
			adjusted.SourceBudgets[i].MaxResults = scaled
		}
	}

	if adjusted.TotalBudgetSeconds > p.MaxTotalSeconds {
		adjusted.TotalBudgetSeconds = p.MaxTotalSeconds
	}

	return adjusted
}

func sumMaxResults(budgets []model.SourceBudget) int {
	sum := 0
	for _, b := range budgets {
		sum += b.MaxResults
	}
	return sum
}
