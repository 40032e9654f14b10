package dashboard

import (
	"math"
	"sort"

	"github.com/bwise1/civic_dispatch/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/twpayne/go-polyline"
)

func summaries(reports []model.Report) []model.ReportSummary {
	out := make([]model.ReportSummary, len(reports))
	for i, r := range reports {
		out[i] = r.Summary()
	}
	return out
}

func statusCounts(reports []model.Report) []model.StatusCount {
	counts := make(map[model.Status]int)
	for _, r := range reports {
		counts[r.Status]++
	}
	out := make([]model.StatusCount, 0, len(counts))
	for _, st := range model.AllStatuses {
		if n := counts[st]; n > 0 {
			out = append(out, model.StatusCount{Status: st, Count: n})
		}
	}
	return out
}

// categoryCounts is sorted by count, largest first.
func categoryCounts(reports []model.Report) []model.CategoryCount {
	counts := make(map[model.Category]int)
	for _, r := range reports {
		counts[r.Category]++
	}
	out := make([]model.CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, model.CategoryCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func topByPriority(reports []model.Report, n int) []model.Report {
	sorted := make([]model.Report, len(reports))
	copy(sorted, reports)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].PriorityScore != sorted[j].PriorityScore {
			return sorted[i].PriorityScore > sorted[j].PriorityScore
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// heatPoints weights each report by priority, with a floor of 1 so that
// fresh or downvoted reports still show up.
func heatPoints(reports []model.Report) []model.HeatPoint {
	out := make([]model.HeatPoint, len(reports))
	for i, r := range reports {
		weight := r.PriorityScore
		if weight <= 0 {
			weight = 1
		}
		out[i] = model.HeatPoint{
			Location: [2]float64{r.Location.Longitude, r.Location.Latitude},
			Weight:   weight,
			Category: r.Category,
		}
	}
	return out
}

// encodeHeatmap packs the heat points into a Google encoded polyline, the
// compact form map clients already decode for routes.
func encodeHeatmap(points []model.HeatPoint) string {
	if len(points) == 0 {
		return ""
	}
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Location[1], p.Location[0]}
	}
	return string(polyline.EncodeCoords(coords))
}

// averageResolutionHours averages updatedAt - createdAt over resolved reports.
// ok is false when none are resolved.
func averageResolutionHours(reports []model.Report) (hours float64, ok bool) {
	var (
		total decimal.Decimal
		n     int64
	)
	for _, r := range reports {
		if r.Status != model.StatusResolved {
			continue
		}
		total = total.Add(decimal.NewFromFloat(r.UpdatedAt.Sub(r.CreatedAt).Hours()))
		n++
	}
	if n == 0 {
		return 0, false
	}
	return total.Div(decimal.NewFromInt(n)).Round(2).InexactFloat64(), true
}

func filterStatuses(reports []model.Report, statuses ...model.Status) []model.Report {
	out := make([]model.Report, 0, len(reports))
	for _, r := range reports {
		for _, st := range statuses {
			if r.Status == st {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// authorityPerformance reports one row per authority that owns a region,
// fastest average resolution first; authorities with nothing resolved go last.
func authorityPerformance(regions []model.AuthorityRegion, reports []model.Report) []model.AuthorityPerformance {
	byAuthority := make(map[uuid.UUID][]model.Report)
	for _, r := range reports {
		if r.AssignedAuthority != nil {
			byAuthority[*r.AssignedAuthority] = append(byAuthority[*r.AssignedAuthority], r)
		}
	}

	seen := make(map[uuid.UUID]bool)
	out := make([]model.AuthorityPerformance, 0)
	for _, region := range regions {
		if seen[region.AuthorityID] {
			continue
		}
		seen[region.AuthorityID] = true

		assigned := byAuthority[region.AuthorityID]
		row := model.AuthorityPerformance{
			AuthorityID:  region.AuthorityID,
			Name:         region.Name,
			TotalReports: len(assigned),
			Resolved:     len(filterStatuses(assigned, model.StatusResolved)),
		}
		if hours, ok := averageResolutionHours(assigned); ok {
			row.AvgResolutionHours = &hours
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].AvgResolutionHours, out[j].AvgResolutionHours
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return *a < *b
	})
	return out
}

func roundedDistance(a, b model.Location) int {
	return int(math.Round(a.DistanceTo(b)))
}
