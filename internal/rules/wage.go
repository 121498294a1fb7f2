package rules

// Default wage rates, overridable via configuration.
const (
	DefaultRatePerMile     = 0.50
	DefaultAllowancePerJob = 1.00
)

// WageResult is the wage breakdown for a worker over a period. No rounding
// is applied; callers round for display.
type WageResult struct {
	TotalDistanceMiles    float64 `json:"totalDistanceMiles"`
	CompletedJobs         int     `json:"completedJobs"`
	RatePerMile           float64 `json:"ratePerMile"`
	AllowancePerJob       float64 `json:"allowancePerJob"`
	BasePay               float64 `json:"basePay"`
	Allowance             float64 `json:"allowance"`
	Total                 float64 `json:"total"`
	AverageDistancePerJob float64 `json:"averageDistancePerJob"`
}

// ComputeWage derives a wage from total distance traveled and the number of
// completed jobs. AverageDistancePerJob is defined as 0 when completedJobs
// is 0 rather than an error.
func ComputeWage(totalDistanceMiles float64, completedJobs int, ratePerMile, allowancePerJob float64) WageResult {
	res := WageResult{
		TotalDistanceMiles: totalDistanceMiles,
		CompletedJobs:      completedJobs,
		RatePerMile:        ratePerMile,
		AllowancePerJob:    allowancePerJob,
	}
	res.BasePay = totalDistanceMiles * ratePerMile
	res.Allowance = float64(completedJobs) * allowancePerJob
	res.Total = res.BasePay + res.Allowance
	if completedJobs > 0 {
		res.AverageDistancePerJob = totalDistanceMiles / float64(completedJobs)
	}
	return res
}
