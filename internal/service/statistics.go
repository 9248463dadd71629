package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"license-server/internal/model"

	"gorm.io/gorm"
)

// expiringWindow is how far ahead a license counts as "expiring".
const expiringWindow = 30 * day

type StatisticsService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStatisticsService(db *gorm.DB, opts ...Option) *StatisticsService {
	o := applyOptions(opts)
	return &StatisticsService{db: db, now: o.now}
}

// Collect aggregates the license table and the validation log between start
// and end (inclusive).
func (s *StatisticsService) Collect(ctx context.Context, start, end time.Time) (*model.LicenseStatistics, error) {
	db := s.db.WithContext(ctx)
	now := s.now().UTC()

	stats := &model.LicenseStatistics{
		LicensesByPlan: make(map[string]int),
		DailyUsage:     make([]model.DailyUsage, 0),
	}

	if err := db.Model(&model.License{}).Count(&stats.TotalLicenses).Error; err != nil {
		return nil, fmt.Errorf("count licenses: %w", err)
	}
	if err := db.Model(&model.License{}).Where("active = ?", true).Count(&stats.ActiveLicenses).Error; err != nil {
		return nil, fmt.Errorf("count active licenses: %w", err)
	}
	stats.InactiveLicenses = stats.TotalLicenses - stats.ActiveLicenses

	if err := db.Model(&model.License{}).Where("expires_at <= ?", now).Count(&stats.ExpiredLicenses).Error; err != nil {
		return nil, fmt.Errorf("count expired licenses: %w", err)
	}
	if err := db.Model(&model.License{}).
		Where("active = ? AND expires_at > ? AND expires_at <= ?", true, now, now.Add(expiringWindow)).
		Count(&stats.ExpiringLicenses).Error; err != nil {
		return nil, fmt.Errorf("count expiring licenses: %w", err)
	}

	var planStats []struct {
		Plan  string
		Count int
	}
	if err := db.Model(&model.License{}).
		Select("plan, count(*) as count").
		Group("plan").
		Scan(&planStats).Error; err != nil {
		return nil, fmt.Errorf("group licenses by plan: %w", err)
	}
	for _, ps := range planStats {
		stats.LicensesByPlan[ps.Plan] = ps.Count
	}

	var usages []model.LicenseUsage
	if err := db.Select("key_fingerprint", "valid", "checked_at").
		Where("checked_at BETWEEN ? AND ?", start.UTC(), end.UTC()).
		Find(&usages).Error; err != nil {
		return nil, fmt.Errorf("load validation log: %w", err)
	}
	stats.DailyUsage = dailyUsage(usages)
	for _, u := range usages {
		stats.TotalChecks++
		if !u.Valid {
			stats.FailedChecks++
		}
	}

	return stats, nil
}

// dailyUsage buckets validation calls by UTC calendar day.
func dailyUsage(usages []model.LicenseUsage) []model.DailyUsage {
	byDay := make(map[string]*model.DailyUsage)
	keys := make(map[string]map[string]struct{})

	for _, u := range usages {
		date := u.CheckedAt.UTC().Format("2006-01-02")
		d, ok := byDay[date]
		if !ok {
			d = &model.DailyUsage{Date: date}
			byDay[date] = d
			keys[date] = make(map[string]struct{})
		}
		d.TotalChecks++
		if !u.Valid {
			d.FailedChecks++
		}
		keys[date][u.KeyFingerprint] = struct{}{}
	}

	out := make([]model.DailyUsage, 0, len(byDay))
	for date, d := range byDay {
		d.DistinctLicenses = len(keys[date])
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
