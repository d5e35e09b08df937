package dto

import "github.com/calldojo/calldojo-api/internal/models"

// ScenarioResponse is the public view of a training scenario. The rubric is
// included so clients can show progress hints, but the graph itself stays
// server-side.
type ScenarioResponse struct {
	ID                    string              `json:"id"`
	Name                  string              `json:"name"`
	Description           string              `json:"description,omitempty"`
	StartNodeID           string              `json:"start_node_id"`
	RequiredCategorySteps map[string][]string `json:"required_category_steps"`
}

// NewScenarioResponse converts a scenario into a DTO.
func NewScenarioResponse(scenario models.Scenario) ScenarioResponse {
	steps := make(map[string][]string, len(scenario.RequiredCategorySteps))
	for category, nodeIDs := range scenario.RequiredCategorySteps {
		steps[string(category)] = nodeIDs
	}
	return ScenarioResponse{
		ID:                    scenario.ID,
		Name:                  scenario.Name,
		Description:           scenario.Description,
		StartNodeID:           scenario.StartNodeID,
		RequiredCategorySteps: steps,
	}
}

// NewScenarioResponseSlice converts scenarios into DTOs.
func NewScenarioResponseSlice(scenarios []models.Scenario) []ScenarioResponse {
	out := make([]ScenarioResponse, 0, len(scenarios))
	for _, scenario := range scenarios {
		out = append(out, NewScenarioResponse(scenario))
	}
	return out
}
