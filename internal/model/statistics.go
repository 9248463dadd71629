package model

// DailyUsage is one day of validation traffic.
type DailyUsage struct {
	Date             string `json:"date"`
	TotalChecks      int    `json:"total_checks"`
	FailedChecks     int    `json:"failed_checks"`
	DistinctLicenses int    `json:"distinct_licenses"`
}

// LicenseStatistics summarises the license table and the validation log.
type LicenseStatistics struct {
	TotalLicenses    int64          `json:"total_licenses"`
	ActiveLicenses   int64          `json:"active_licenses"`
	InactiveLicenses int64          `json:"inactive_licenses"`
	ExpiredLicenses  int64          `json:"expired_licenses"`
	ExpiringLicenses int64          `json:"expiring_licenses"`
	LicensesByPlan   map[string]int `json:"licenses_by_plan"`
	DailyUsage       []DailyUsage   `json:"daily_usage"`
	TotalChecks      int64          `json:"total_checks"`
	FailedChecks     int64          `json:"failed_checks"`
}

// GetSuccessRate returns the share of validation calls that succeeded.
func (ls *LicenseStatistics) GetSuccessRate() float64 {
	if ls.TotalChecks == 0 {
		return 0
	}
	return float64(ls.TotalChecks-ls.FailedChecks) / float64(ls.TotalChecks)
}

func (ls *LicenseStatistics) GetUsageByPlan(plan string) int {
	if count, ok := ls.LicensesByPlan[plan]; ok {
		return count
	}
	return 0
}

// GetDailyUsageByDate looks up a day in YYYY-MM-DD form.
func (ls *LicenseStatistics) GetDailyUsageByDate(date string) *DailyUsage {
	for i := range ls.DailyUsage {
		if ls.DailyUsage[i].Date == date {
			return &ls.DailyUsage[i]
		}
	}
	return nil
}
