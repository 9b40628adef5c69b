package trendcontext

// Assessor scores completeness of a cleaned record. Pure function of the
// record's presence/size; no I/O, no randomness.
type Assessor struct {
	cfg Config
}

func NewAssessor(cfg Config) *Assessor { return &Assessor{cfg: cfg} }

// Assess computes the three presence flags, the weighted completeness
// score, and rule-matched recommendations. The recommendation list is
// empty exactly when the score is at its maximum.
func (a *Assessor) Assess(clean CleanedTrendsRecord) QualityAssessment {
	q := QualityAssessment{
		HasInterestData:   len(clean.InterestOverTime) > 0,
		HasRelatedQueries: len(clean.TopQueries) > 0,
		HasRisingSearches: len(clean.RisingQueries) > 0,
	}

	total := a.cfg.InterestWeight + a.cfg.TopQueriesWeight + a.cfg.RisingWeight
	score := 0.0
	if q.HasInterestData {
		score += a.cfg.InterestWeight
	}
	if q.HasRelatedQueries {
		score += a.cfg.TopQueriesWeight
	}
	if q.HasRisingSearches {
		score += a.cfg.RisingWeight
	}
	score /= total

	shortSeries := q.HasInterestData && len(clean.InterestOverTime) < a.cfg.MinSeriesPoints
	if shortSeries {
		score -= a.cfg.ShortSeriesPenalty
		if score < 0 {
			score = 0
		}
	}
	q.CompletenessScore = score

	if !q.HasInterestData {
		q.Recommendations = append(q.Recommendations,
			"no interest-over-time data; market maturity analysis will be unreliable")
	}
	if shortSeries {
		q.Recommendations = append(q.Recommendations,
			"interest series too short for reliable trend direction")
	}
	if !q.HasRelatedQueries {
		q.Recommendations = append(q.Recommendations,
			"no related queries; problem extraction will have limited evidence")
	}
	if !q.HasRisingSearches {
		q.Recommendations = append(q.Recommendations,
			"no rising searches; emerging-demand signals are unavailable")
	}
	return q
}
