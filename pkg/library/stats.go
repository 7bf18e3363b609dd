package library

import (
	"math"
	"sort"

	"github.com/novelforge/novelforge/pkg/model"
)

// Stats is the library's aggregate reductions over a set of entries
// (spec.md §4.7 "LibraryStats"), grounded on stats_service.py's
// calculate_library_stats.
type Stats struct {
	TotalBooks      int
	CompletedBooks  int
	InProgressBooks int

	AverageScore               *float64
	AveragePages               float64
	AverageWritingTimeMinutes  float64
	BooksByMode                map[string]int
	BooksByGenre               map[string]int
	ScoreDistribution          map[string]int
	AverageScoreByMode         map[string]float64
	AverageWritingTimeByMode   map[string]float64
	// AverageTimePerPageByMode is a weighted average (sum(minutes) /
	// sum(pages)), not an average of per-book ratios (spec.md §4.7).
	AverageTimePerPageByMode map[string]float64
	AveragePagesByMode       map[string]float64
	AverageCostByMode        map[string]float64
	AverageCostPerPageByMode map[string]float64
}

// ComputeStats is a pure reduction over entries (spec.md §4.7
// "Aggregates... are pure reductions").
func ComputeStats(entries []Entry) Stats {
	stats := Stats{
		BooksByMode:              map[string]int{},
		BooksByGenre:             map[string]int{},
		ScoreDistribution:        map[string]int{},
		AverageScoreByMode:       map[string]float64{},
		AverageWritingTimeByMode: map[string]float64{},
		AverageTimePerPageByMode: map[string]float64{},
		AveragePagesByMode:       map[string]float64{},
		AverageCostByMode:        map[string]float64{},
		AverageCostPerPageByMode: map[string]float64{},
	}
	if len(entries) == 0 {
		return stats
	}
	stats.TotalBooks = len(entries)

	var completed, inProgress []Entry
	for _, e := range entries {
		if e.Status == model.StatusComplete {
			completed = append(completed, e)
		} else {
			inProgress = append(inProgress, e)
		}
		stats.BooksByMode[e.Mode]++
		if e.Genre != "" {
			stats.BooksByGenre[e.Genre]++
		}
	}
	stats.CompletedBooks = len(completed)
	stats.InProgressBooks = len(inProgress)

	var scoreSum float64
	var scoreCount int
	for _, e := range completed {
		if e.CritiqueScore != nil {
			scoreSum += *e.CritiqueScore
			scoreCount++
			stats.ScoreDistribution[scoreBucket(*e.CritiqueScore)]++
		}
	}
	if scoreCount > 0 {
		avg := scoreSum / float64(scoreCount)
		stats.AverageScore = &avg
	}

	var pagesSum float64
	var pagesCount int
	for _, e := range completed {
		if e.TotalPages != nil && *e.TotalPages > 0 {
			pagesSum += float64(*e.TotalPages)
			pagesCount++
		}
	}
	if pagesCount > 0 {
		stats.AveragePages = pagesSum / float64(pagesCount)
	}

	var timeSum float64
	var timeCount int
	for _, e := range entries {
		if e.WritingTimeMinutes != nil && *e.WritingTimeMinutes > 0 {
			timeSum += *e.WritingTimeMinutes
			timeCount++
		}
	}
	if timeCount > 0 {
		stats.AverageWritingTimeMinutes = timeSum / float64(timeCount)
	}

	modeScores := map[string][]float64{}
	modeTimes := map[string][]float64{}
	modePages := map[string][]float64{}
	modeCosts := map[string][]float64{}
	modeCostsPerPage := map[string][]float64{}
	modeTimeSumMinutes := map[string]float64{}
	modePagesSumForTime := map[string]float64{}

	for _, e := range completed {
		if e.CritiqueScore != nil {
			modeScores[e.Mode] = append(modeScores[e.Mode], *e.CritiqueScore)
		}
		if e.WritingTimeMinutes != nil && *e.WritingTimeMinutes > 0 {
			modeTimes[e.Mode] = append(modeTimes[e.Mode], *e.WritingTimeMinutes)
			if e.TotalPages != nil && *e.TotalPages > 0 {
				modeTimeSumMinutes[e.Mode] += *e.WritingTimeMinutes
				modePagesSumForTime[e.Mode] += float64(*e.TotalPages)
			}
		}
		if e.TotalPages != nil && *e.TotalPages > 0 {
			modePages[e.Mode] = append(modePages[e.Mode], float64(*e.TotalPages))
		}
		if e.EstimatedCost != nil && *e.EstimatedCost > 0 {
			modeCosts[e.Mode] = append(modeCosts[e.Mode], *e.EstimatedCost)
			if e.TotalPages != nil && *e.TotalPages > 0 {
				modeCostsPerPage[e.Mode] = append(modeCostsPerPage[e.Mode], *e.EstimatedCost/float64(*e.TotalPages))
			}
		}
	}

	for mode, values := range modeScores {
		stats.AverageScoreByMode[mode] = round2(mean(values))
	}
	for mode, values := range modeTimes {
		stats.AverageWritingTimeByMode[mode] = round1(mean(values))
	}
	for mode, pagesSum := range modePagesSumForTime {
		if pagesSum > 0 {
			stats.AverageTimePerPageByMode[mode] = round2(modeTimeSumMinutes[mode] / pagesSum)
		}
	}
	for mode, values := range modePages {
		stats.AveragePagesByMode[mode] = round1(mean(values))
	}
	for mode, values := range modeCosts {
		stats.AverageCostByMode[mode] = round4(mean(values))
	}
	for mode, values := range modeCostsPerPage {
		stats.AverageCostPerPageByMode[mode] = round4(mean(values))
	}

	if stats.AverageScore != nil {
		rounded := round2(*stats.AverageScore)
		stats.AverageScore = &rounded
	}
	stats.AveragePages = round1(stats.AveragePages)
	stats.AverageWritingTimeMinutes = round1(stats.AverageWritingTimeMinutes)

	return stats
}

// scoreBucket is stats_service.py's five-bucket score histogram.
func scoreBucket(score float64) string {
	switch {
	case score < 2:
		return "0-2"
	case score < 4:
		return "2-4"
	case score < 6:
		return "4-6"
	case score < 8:
		return "6-8"
	default:
		return "8-10"
	}
}

// ModelComparisonEntry is one row of AdvancedStats.ModelComparison
// (spec.md §4.7), grounded on stats_service.py's ModelComparisonEntry.
type ModelComparisonEntry struct {
	Mode              string
	TotalBooks        int
	CompletedBooks    int
	AverageScore      *float64
	AveragePages      float64
	AverageCost       *float64
	AverageWritingTime float64
	AverageTimePerPage float64
	ScoreRange         map[string]int
}

// AdvancedStats adds time-bucketed trends and a per-mode comparison
// table (spec.md §4.7).
type AdvancedStats struct {
	BooksOverTime      map[string]int
	ScoreTrendOverTime map[string]float64
	ModelComparison    []ModelComparisonEntry
}

// ComputeAdvancedStats buckets entries by created_at.Date() (spec.md
// §4.7 "Monthly/daily bucketing for trends uses created_at.date()")
// and builds the per-mode comparison table.
func ComputeAdvancedStats(entries []Entry) AdvancedStats {
	adv := AdvancedStats{
		BooksOverTime:      map[string]int{},
		ScoreTrendOverTime: map[string]float64{},
	}
	if len(entries) == 0 {
		return adv
	}

	for _, e := range entries {
		adv.BooksOverTime[e.CreatedAt.Format("2006-01-02")]++
	}

	scoresByDate := map[string][]float64{}
	for _, e := range entries {
		if e.Status == model.StatusComplete && e.CritiqueScore != nil {
			date := e.CreatedAt.Format("2006-01-02")
			scoresByDate[date] = append(scoresByDate[date], *e.CritiqueScore)
		}
	}
	for date, scores := range scoresByDate {
		adv.ScoreTrendOverTime[date] = round2(mean(scores))
	}

	byMode := map[string][]Entry{}
	for _, e := range entries {
		byMode[e.Mode] = append(byMode[e.Mode], e)
	}
	modes := make([]string, 0, len(byMode))
	for mode := range byMode {
		modes = append(modes, mode)
	}
	sort.Strings(modes)

	for _, mode := range modes {
		modeEntries := byMode[mode]
		modeStats := ComputeStats(modeEntries)
		adv.ModelComparison = append(adv.ModelComparison, ModelComparisonEntry{
			Mode:               mode,
			TotalBooks:         modeStats.TotalBooks,
			CompletedBooks:     modeStats.CompletedBooks,
			AverageScore:       modeStats.AverageScore,
			AveragePages:       modeStats.AveragePages,
			AverageCost:        firstNonZeroCost(modeStats.AverageCostByMode, mode),
			AverageWritingTime: modeStats.AverageWritingTimeMinutes,
			AverageTimePerPage: modeStats.AverageTimePerPageByMode[mode],
			ScoreRange:         modeStats.ScoreDistribution,
		})
	}
	return adv
}

func firstNonZeroCost(byMode map[string]float64, mode string) *float64 {
	if v, ok := byMode[mode]; ok {
		return &v
	}
	return nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
