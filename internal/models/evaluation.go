package models

import "time"

// CategoryScores holds the 0-100 coverage score for each of the five fixed
// sales categories.
type CategoryScores struct {
	Introduction      int `json:"introduction"`
	Rapport           int `json:"rapport"`
	Discovery         int `json:"discovery"`
	ObjectionHandling int `json:"objection_handling"`
	Closing           int `json:"closing"`
}

// Get returns the score for a category.
func (c CategoryScores) Get(category Category) int {
	switch category {
	case CategoryIntroduction:
		return c.Introduction
	case CategoryRapport:
		return c.Rapport
	case CategoryDiscovery:
		return c.Discovery
	case CategoryObjectionHandling:
		return c.ObjectionHandling
	case CategoryClosing:
		return c.Closing
	default:
		return 0
	}
}

// Set assigns the score for a category.
func (c *CategoryScores) Set(category Category, score int) {
	switch category {
	case CategoryIntroduction:
		c.Introduction = score
	case CategoryRapport:
		c.Rapport = score
	case CategoryDiscovery:
		c.Discovery = score
	case CategoryObjectionHandling:
		c.ObjectionHandling = score
	case CategoryClosing:
		c.Closing = score
	}
}

// EvaluationResult is the scored outcome of a call session against a
// scenario rubric. It is derived data, recomputable at any time, and never
// treated as a source of truth.
type EvaluationResult struct {
	SessionID          string         `json:"session_id"`
	OverallScore       int            `json:"overall_score"`
	CategoryScores     CategoryScores `json:"category_scores"`
	Summary            string         `json:"summary"`
	Mistakes           []string       `json:"mistakes"`
	Recommendations    []string       `json:"recommendations"`
	NodePathAccuracy   float64        `json:"node_path_accuracy"`
	CompletedSteps     int            `json:"completed_steps"`
	TotalRequiredSteps int            `json:"total_required_steps"`
	Timestamp          time.Time      `json:"timestamp"`
	StudentInfo        *StudentInfo   `json:"student_info,omitempty"`
}
