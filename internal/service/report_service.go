package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/calldojo/calldojo-api/internal/dto"
	"github.com/calldojo/calldojo-api/internal/engine"
	"github.com/calldojo/calldojo-api/internal/models"
	"github.com/calldojo/calldojo-api/internal/repository"
)

// ReportService produces evaluations and post-call reports. It only reads
// sessions; a mid-call preview evaluation works on the repository snapshot
// and never blocks the writer.
type ReportService interface {
	Evaluate(ctx context.Context, sessionID, scenarioID string) (dto.EvaluationResponse, error)
	SessionReport(ctx context.Context, sessionID, scenarioID string) (dto.SessionReportResponse, error)
	StudentReports(ctx context.Context, studentID, scenarioID string) (dto.StudentReportsResponse, error)
}

type reportService struct {
	sessions    repository.SessionRepository
	evaluations *engine.EvaluationEngine
	logger      zerolog.Logger
	now         func() time.Time
}

// NewReportService builds the reporting service.
func NewReportService(sessions repository.SessionRepository, evaluations *engine.EvaluationEngine, logger zerolog.Logger) ReportService {
	return &reportService{
		sessions:    sessions,
		evaluations: evaluations,
		logger:      logger.With().Str("component", "report_service").Logger(),
		now:         time.Now,
	}
}

func (s *reportService) Evaluate(ctx context.Context, sessionID, scenarioID string) (dto.EvaluationResponse, error) {
	_, result, err := s.evaluateSession(ctx, sessionID, scenarioID)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}
	return dto.NewEvaluationResponse(result), nil
}

func (s *reportService) SessionReport(ctx context.Context, sessionID, scenarioID string) (dto.SessionReportResponse, error) {
	session, result, err := s.evaluateSession(ctx, sessionID, scenarioID)
	if err != nil {
		return dto.SessionReportResponse{}, err
	}

	report := dto.SessionReportResponse{
		SessionID:       session.ID,
		Date:            session.StartTime,
		DurationSeconds: int(math.Round(session.Duration(s.now().UTC()).Seconds())),
		Evaluation:      dto.NewEvaluationResponse(result),
		Conversation:    dto.NewTurnResponseSlice(session.Turns),
		NodePath:        session.NodePathTraversed,
		Status:          string(session.Status),
	}
	if session.StudentInfo != nil {
		report.StudentName = session.StudentInfo.Name
		report.BatchID = session.StudentInfo.BatchID
	}
	return report, nil
}

func (s *reportService) StudentReports(ctx context.Context, studentID, scenarioID string) (dto.StudentReportsResponse, error) {
	sessions, err := s.sessions.ListByStudent(ctx, studentID)
	if err != nil {
		return dto.StudentReportsResponse{}, err
	}

	if len(sessions) == 0 {
		return dto.StudentReportsResponse{
			Reports: []dto.StudentReportEntry{},
			Summary: dto.StudentReportSummary{Improvement: "N/A"},
		}, nil
	}

	// Oldest first, so the improvement delta compares the first call with
	// the latest one.
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime.Before(sessions[j].StartTime)
	})

	now := s.now().UTC()
	entries := make([]dto.StudentReportEntry, 0, len(sessions))
	for _, session := range sessions {
		result, err := s.evaluate(session, scenarioID)
		if err != nil {
			if errors.Is(err, engine.ErrScenarioNotFound) {
				return dto.StudentReportsResponse{}, err
			}
			s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("skipping unevaluable session")
			continue
		}
		entries = append(entries, dto.StudentReportEntry{
			SessionID:       session.ID,
			Date:            session.StartTime,
			DurationSeconds: int(math.Round(session.Duration(now).Seconds())),
			OverallScore:    result.OverallScore,
			CategoryScores: dto.CategoryScoresDTO{
				Introduction:      result.CategoryScores.Introduction,
				Rapport:           result.CategoryScores.Rapport,
				Discovery:         result.CategoryScores.Discovery,
				ObjectionHandling: result.CategoryScores.ObjectionHandling,
				Closing:           result.CategoryScores.Closing,
			},
			Status: string(session.Status),
		})
	}

	return dto.StudentReportsResponse{
		Reports: entries,
		Summary: buildReportSummary(entries),
	}, nil
}

func (s *reportService) evaluateSession(ctx context.Context, sessionID, scenarioID string) (*models.CallSession, models.EvaluationResult, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, models.EvaluationResult{}, ErrSessionNotFound
		}
		return nil, models.EvaluationResult{}, err
	}

	result, err := s.evaluate(session, scenarioID)
	if err != nil {
		return nil, models.EvaluationResult{}, err
	}
	return session, result, nil
}

// evaluate resolves the rubric: an explicit scenario id wins, otherwise the
// scenario the session was created against.
func (s *reportService) evaluate(session *models.CallSession, scenarioID string) (models.EvaluationResult, error) {
	if scenarioID == "" {
		scenarioID = session.ScenarioID
	}
	return s.evaluations.Evaluate(session, scenarioID)
}

func buildReportSummary(entries []dto.StudentReportEntry) dto.StudentReportSummary {
	summary := dto.StudentReportSummary{
		TotalSessions: len(entries),
		Improvement:   "N/A",
	}
	if len(entries) == 0 {
		return summary
	}

	total := 0
	for _, entry := range entries {
		total += entry.OverallScore
		if entry.OverallScore > summary.BestScore {
			summary.BestScore = entry.OverallScore
		}
	}
	summary.AverageScore = int(math.Round(float64(total) / float64(len(entries))))
	summary.LatestScore = entries[len(entries)-1].OverallScore

	if len(entries) > 1 {
		delta := entries[len(entries)-1].OverallScore - entries[0].OverallScore
		if delta > 0 {
			summary.Improvement = fmt.Sprintf("+%d%%", delta)
		} else {
			summary.Improvement = fmt.Sprintf("%d%%", delta)
		}
	}
	return summary
}
