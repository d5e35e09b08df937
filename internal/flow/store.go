package flow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/calldojo/calldojo-api/internal/models"
)

// Store holds the immutable conversation graph and scenario rubrics. It is
// built once at startup and safe for concurrent reads.
type Store struct {
	nodes         map[string]models.DecisionNode
	scenarios     map[string]models.Scenario
	scenarioOrder []string
}

// Load reads, validates, and indexes a flow document from disk. Any schema
// violation or dangling reference is a configuration error: the returned
// error is fatal and must abort startup.
func Load(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flow config: %w", err)
	}
	return Parse(raw)
}

// Parse validates and indexes a raw flow document.
func Parse(raw []byte) (*Store, error) {
	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var doc models.FlowDocument
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode flow config: %w", err)
	}

	return New(doc)
}

// New builds a store from an already decoded document, running referential
// validation on it.
func New(doc models.FlowDocument) (*Store, error) {
	store := &Store{
		nodes:     make(map[string]models.DecisionNode, len(doc.Nodes)),
		scenarios: make(map[string]models.Scenario, len(doc.Scenarios)),
	}

	for _, node := range doc.Nodes {
		if _, exists := store.nodes[node.ID]; exists {
			return nil, fmt.Errorf("flow config: duplicate node id %q", node.ID)
		}
		store.nodes[node.ID] = node
	}

	for _, scenario := range doc.Scenarios {
		if _, exists := store.scenarios[scenario.ID]; exists {
			return nil, fmt.Errorf("flow config: duplicate scenario id %q", scenario.ID)
		}
		store.scenarios[scenario.ID] = scenario
		store.scenarioOrder = append(store.scenarioOrder, scenario.ID)
	}

	if err := store.validateDocument(doc); err != nil {
		return nil, err
	}

	return store, nil
}

func validateSchema(raw []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("flow.schema.json", strings.NewReader(flowSchema)); err != nil {
		return fmt.Errorf("register flow schema: %w", err)
	}
	schema, err := compiler.Compile("flow.schema.json")
	if err != nil {
		return fmt.Errorf("compile flow schema: %w", err)
	}

	var document interface{}
	if err := json.Unmarshal(raw, &document); err != nil {
		return fmt.Errorf("parse flow config: %w", err)
	}

	if err := schema.Validate(document); err != nil {
		return fmt.Errorf("flow config failed schema validation: %w", err)
	}

	return nil
}

// validateDocument enforces the referential invariants: every transition
// intent exists on its node, every next-node reference resolves, bot nodes
// carry at least one scripted response, and scenario rubrics only name real
// nodes.
func (s *Store) validateDocument(doc models.FlowDocument) error {
	for _, node := range doc.Nodes {
		if node.Type != models.NodeTypeUserDecision && len(node.BotResponses) == 0 {
			return fmt.Errorf("flow config: node %q has no bot responses", node.ID)
		}

		intentIDs := make(map[string]struct{}, len(node.ExpectedIntents))
		for _, intent := range node.ExpectedIntents {
			intentIDs[intent.ID] = struct{}{}
		}

		for _, transition := range node.Transitions {
			if _, ok := intentIDs[transition.IntentID]; !ok {
				return fmt.Errorf("flow config: node %q transition references unknown intent %q", node.ID, transition.IntentID)
			}
			if _, ok := s.nodes[transition.NextNodeID]; !ok {
				return fmt.Errorf("flow config: node %q transition references unknown node %q", node.ID, transition.NextNodeID)
			}
		}

		if node.DefaultNextNodeID != "" {
			if _, ok := s.nodes[node.DefaultNextNodeID]; !ok {
				return fmt.Errorf("flow config: node %q default next references unknown node %q", node.ID, node.DefaultNextNodeID)
			}
		}
	}

	for _, scenario := range doc.Scenarios {
		if _, ok := s.nodes[scenario.StartNodeID]; !ok {
			return fmt.Errorf("flow config: scenario %q start node %q does not exist", scenario.ID, scenario.StartNodeID)
		}
		for category, steps := range scenario.RequiredCategorySteps {
			for _, step := range steps {
				if _, ok := s.nodes[step]; !ok {
					return fmt.Errorf("flow config: scenario %q required step %q (%s) does not exist", scenario.ID, step, category)
				}
			}
		}
		if scenario.SuccessTerminalID != "" {
			if _, ok := s.nodes[scenario.SuccessTerminalID]; !ok {
				return fmt.Errorf("flow config: scenario %q success terminal %q does not exist", scenario.ID, scenario.SuccessTerminalID)
			}
		}
		for _, id := range scenario.FailureTerminalIDs {
			if _, ok := s.nodes[id]; !ok {
				return fmt.Errorf("flow config: scenario %q failure terminal %q does not exist", scenario.ID, id)
			}
		}
	}

	return nil
}

// Node returns the node with the given id.
func (s *Store) Node(id string) (models.DecisionNode, bool) {
	node, ok := s.nodes[id]
	return node, ok
}

// Scenario returns the scenario with the given id.
func (s *Store) Scenario(id string) (models.Scenario, bool) {
	scenario, ok := s.scenarios[id]
	return scenario, ok
}

// Scenarios returns all scenarios in document order.
func (s *Store) Scenarios() []models.Scenario {
	out := make([]models.Scenario, 0, len(s.scenarioOrder))
	for _, id := range s.scenarioOrder {
		out = append(out, s.scenarios[id])
	}
	return out
}

// ScenarioStartNode resolves the start node for a scenario.
func (s *Store) ScenarioStartNode(scenarioID string) (models.DecisionNode, bool) {
	scenario, ok := s.scenarios[scenarioID]
	if !ok {
		return models.DecisionNode{}, false
	}
	return s.Node(scenario.StartNodeID)
}
