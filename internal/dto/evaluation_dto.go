package dto

import (
	"time"

	"github.com/calldojo/calldojo-api/internal/models"
)

// EvaluateRequest asks for a score report on a session.
type EvaluateRequest struct {
	SessionID  string `json:"session_id" validate:"required,max=128"`
	ScenarioID string `json:"scenario_id" validate:"omitempty,max=128"`
}

// EvaluationResponse is the serialized score report.
type EvaluationResponse struct {
	SessionID          string              `json:"session_id"`
	OverallScore       int                 `json:"overall_score"`
	CategoryScores     CategoryScoresDTO   `json:"category_scores"`
	Summary            string              `json:"summary"`
	Mistakes           []string            `json:"mistakes"`
	Recommendations    []string            `json:"recommendations"`
	NodePathAccuracy   float64             `json:"node_path_accuracy"`
	CompletedSteps     int                 `json:"completed_steps"`
	TotalRequiredSteps int                 `json:"total_required_steps"`
	Timestamp          time.Time           `json:"timestamp"`
	StudentInfo        *StudentInfoPayload `json:"student_info,omitempty"`
}

// CategoryScoresDTO mirrors the five fixed scoring categories.
type CategoryScoresDTO struct {
	Introduction      int `json:"introduction"`
	Rapport           int `json:"rapport"`
	Discovery         int `json:"discovery"`
	ObjectionHandling int `json:"objection_handling"`
	Closing           int `json:"closing"`
}

// NewEvaluationResponse converts an evaluation result into a DTO.
func NewEvaluationResponse(result models.EvaluationResult) EvaluationResponse {
	response := EvaluationResponse{
		SessionID:    result.SessionID,
		OverallScore: result.OverallScore,
		CategoryScores: CategoryScoresDTO{
			Introduction:      result.CategoryScores.Introduction,
			Rapport:           result.CategoryScores.Rapport,
			Discovery:         result.CategoryScores.Discovery,
			ObjectionHandling: result.CategoryScores.ObjectionHandling,
			Closing:           result.CategoryScores.Closing,
		},
		Summary:            result.Summary,
		Mistakes:           result.Mistakes,
		Recommendations:    result.Recommendations,
		NodePathAccuracy:   result.NodePathAccuracy,
		CompletedSteps:     result.CompletedSteps,
		TotalRequiredSteps: result.TotalRequiredSteps,
		Timestamp:          result.Timestamp,
	}
	if result.StudentInfo != nil {
		response.StudentInfo = &StudentInfoPayload{
			Name:    result.StudentInfo.Name,
			BatchID: result.StudentInfo.BatchID,
		}
	}
	return response
}

// SessionReportResponse bundles a full post-call report for one session.
type SessionReportResponse struct {
	SessionID       string             `json:"session_id"`
	StudentName     string             `json:"student_name,omitempty"`
	BatchID         string             `json:"batch_id,omitempty"`
	Date            time.Time          `json:"date"`
	DurationSeconds int                `json:"duration_seconds"`
	Evaluation      EvaluationResponse `json:"evaluation"`
	Conversation    []TurnResponse     `json:"conversation"`
	NodePath        []string           `json:"node_path"`
	Status          string             `json:"status"`
}

// StudentReportEntry is one row in a student's report history.
type StudentReportEntry struct {
	SessionID       string            `json:"session_id"`
	Date            time.Time         `json:"date"`
	DurationSeconds int               `json:"duration_seconds"`
	OverallScore    int               `json:"overall_score"`
	CategoryScores  CategoryScoresDTO `json:"category_scores"`
	Status          string            `json:"status"`
}

// StudentReportSummary aggregates a student's training history.
type StudentReportSummary struct {
	TotalSessions int    `json:"total_sessions"`
	AverageScore  int    `json:"average_score"`
	LatestScore   int    `json:"latest_score"`
	BestScore     int    `json:"best_score"`
	Improvement   string `json:"improvement"`
}

// StudentReportsResponse is the per-student report listing.
type StudentReportsResponse struct {
	Reports []StudentReportEntry `json:"reports"`
	Summary StudentReportSummary `json:"summary"`
}
