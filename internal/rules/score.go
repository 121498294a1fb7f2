package rules

// Per-job rates. These are the only place points and awards are assigned.
const (
	PointsRegisterFilled = 1.0
	PointsNoAccess       = 0.5

	AwardRegisterFilled = 0.50
	AwardNoAccess       = 0.15
)

// ScoreResult is the per-job score derived solely from the job's outcome.
type ScoreResult struct {
	Points  float64    `json:"points"`
	Award   float64    `json:"award"`
	Outcome JobOutcome `json:"outcome"`
}

// BonusSummary aggregates scores over a collection of jobs. ReadingAward and
// NoAccessAward are each count times the fixed per-outcome rate, and
// TotalAward is exactly their sum.
type BonusSummary struct {
	TotalPoints        float64 `json:"totalPoints"`
	TotalAward         float64 `json:"totalAward"`
	SuccessfulReadings int     `json:"successfulReadings"`
	NoAccessJobs       int     `json:"noAccessJobs"`
	IncompleteJobs     int     `json:"incompleteJobs"`
	ReadingAward       float64 `json:"readingAward"`
	NoAccessAward      float64 `json:"noAccessAward"`
}

// Score maps a job's outcome to points and a monetary award:
// register filled (1, 0.50), no access (0.5, 0.15), incomplete (0, 0).
func Score(job JobData) ScoreResult {
	switch Classify(job) {
	case OutcomeRegisterFilled:
		return ScoreResult{Points: PointsRegisterFilled, Award: AwardRegisterFilled, Outcome: OutcomeRegisterFilled}
	case OutcomeNoAccess:
		return ScoreResult{Points: PointsNoAccess, Award: AwardNoAccess, Outcome: OutcomeNoAccess}
	default:
		return ScoreResult{Outcome: OutcomeIncomplete}
	}
}

// Aggregate folds Score over every job. Each job is scored independently, so
// input order never affects the result. Award totals are derived from the
// per-outcome counts so the breakdown fields always sum exactly to TotalAward.
func Aggregate(jobs []JobData) BonusSummary {
	var s BonusSummary
	for _, job := range jobs {
		sc := Score(job)
		s.TotalPoints += sc.Points
		switch sc.Outcome {
		case OutcomeRegisterFilled:
			s.SuccessfulReadings++
		case OutcomeNoAccess:
			s.NoAccessJobs++
		default:
			s.IncompleteJobs++
		}
	}
	s.ReadingAward = float64(s.SuccessfulReadings) * AwardRegisterFilled
	s.NoAccessAward = float64(s.NoAccessJobs) * AwardNoAccess
	s.TotalAward = s.ReadingAward + s.NoAccessAward
	return s
}
