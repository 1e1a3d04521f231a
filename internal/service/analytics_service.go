package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AnalysisOverview is the dashboard snapshot computed over the caller's
// visible tickets. Two users with different restrictions get different
// numbers from the same data.
type AnalysisOverview struct {
	Total             int64                            `json:"total"`
	Open              int64                            `json:"open"`
	InProgress        int64                            `json:"in_progress"`
	Resolved          int64                            `json:"resolved"`
	Closed            int64                            `json:"closed"`
	PriorityBreakdown map[domain.TicketPriority]int64  `json:"priority_breakdown"`
	MonthlyTrend      []repository.MonthlyTrendPoint   `json:"monthly_trend"`
	TeamPerformance   []TeamPerformanceEntry           `json:"team_performance"`
	GeneratedAt       time.Time                        `json:"generated_at"`
}

// TeamPerformanceEntry couples per-team ticket counts with the average rating.
type TeamPerformanceEntry struct {
	TeamID        int64    `json:"team_id"`
	TeamName      string   `json:"team_name"`
	Total         int64    `json:"total"`
	Resolved      int64    `json:"resolved"`
	AverageRating *float64 `json:"average_rating,omitempty"`
}

// AnalyticsService computes and caches the ticket analysis dashboard.
type AnalyticsService struct {
	tickets     repository.TicketRepository
	ratings     repository.RatingRepository
	policy      *policy.Evaluator
	cache       *redis.Client
	cacheTTL    time.Duration
	trendMonths int
	logger      *zap.Logger
}

// AnalyticsDependencies bundles collaborators for the analytics service.
type AnalyticsDependencies struct {
	TicketRepo  repository.TicketRepository
	RatingRepo  repository.RatingRepository
	Policy      *policy.Evaluator
	Cache       *redis.Client
	CacheTTL    time.Duration
	TrendMonths int
	Logger      *zap.Logger
}

// NewAnalyticsService constructs the service.
func NewAnalyticsService(deps AnalyticsDependencies) *AnalyticsService {
	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	months := deps.TrendMonths
	if months <= 0 {
		months = 6
	}
	return &AnalyticsService{
		tickets:     deps.TicketRepo,
		ratings:     deps.RatingRepo,
		policy:      deps.Policy,
		cache:       deps.Cache,
		cacheTTL:    ttl,
		trendMonths: months,
		logger:      deps.Logger,
	}
}

// Overview returns the analysis snapshot for the user, served from cache when
// fresh. The cache key is per user because the numbers depend on the caller's
// visibility restriction.
func (s *AnalyticsService) Overview(ctx context.Context, user *domain.User) (*AnalysisOverview, error) {
	cacheKey := fmt.Sprintf("helpdesk:analysis:user:%d", user.ID)
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var cached AnalysisOverview
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("analysis cache read failed", zap.Error(err))
		}
	}

	restriction, err := s.policy.VisibleTo(ctx, user)
	if err != nil {
		return nil, err
	}

	overview, err := s.compute(ctx, restriction)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(overview); err == nil {
			if err := s.cache.Set(ctx, cacheKey, raw, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("analysis cache write failed", zap.Error(err))
			}
		}
	}
	return overview, nil
}

func (s *AnalyticsService) compute(ctx context.Context, restriction policy.TicketRestriction) (*AnalysisOverview, error) {
	stages, err := s.tickets.StageStatistics(ctx, restriction)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	priorities, err := s.tickets.PriorityBreakdown(ctx, restriction)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	trend, err := s.tickets.MonthlyTrend(ctx, restriction, s.trendMonths)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	teams, err := s.tickets.TeamPerformanceStats(ctx, restriction)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	averages, err := s.ratings.AverageByTeam(ctx, restriction)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	performance := make([]TeamPerformanceEntry, 0, len(teams))
	for _, team := range teams {
		entry := TeamPerformanceEntry{
			TeamID:   team.TeamID,
			TeamName: team.TeamName,
			Total:    team.Total,
			Resolved: team.Resolved,
		}
		if avg, ok := averages[team.TeamID]; ok {
			value := avg
			entry.AverageRating = &value
		}
		performance = append(performance, entry)
	}

	return &AnalysisOverview{
		Total:             stages.Total,
		Open:              stages.Open,
		InProgress:        stages.InProgress,
		Resolved:          stages.Resolved,
		Closed:            stages.Closed,
		PriorityBreakdown: priorities,
		MonthlyTrend:      trend,
		TeamPerformance:   performance,
		GeneratedAt:       time.Now().UTC(),
	}, nil
}
