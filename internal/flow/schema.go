package flow

// flowSchema is the JSON Schema applied to the flow document before any
// referential validation runs. It pins the structural contract: node and
// scenario shapes, enum values for node types and categories, and required
// fields. Dangling references are checked separately in validateDocument.
const flowSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["nodes", "scenarios"],
  "properties": {
    "nodes": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "type", "label", "category"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"enum": ["bot", "user_decision", "terminal"]},
          "label": {"type": "string"},
          "category": {
            "enum": ["introduction", "rapport", "discovery", "objection_handling", "closing"]
          },
          "botResponses": {"type": "array", "items": {"type": "string"}},
          "expectedIntents": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["id", "label", "examples"],
              "properties": {
                "id": {"type": "string", "minLength": 1},
                "label": {"type": "string"},
                "examples": {"type": "array", "items": {"type": "string"}}
              }
            }
          },
          "transitions": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["intentId", "nextNodeId"],
              "properties": {
                "intentId": {"type": "string", "minLength": 1},
                "nextNodeId": {"type": "string", "minLength": 1}
              }
            }
          },
          "clarificationPrompt": {"type": "string"},
          "defaultNextNodeId": {"type": "string"}
        }
      }
    },
    "scenarios": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "startNodeId", "requiredCategorySteps"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "description": {"type": "string"},
          "startNodeId": {"type": "string", "minLength": 1},
          "personaPrompt": {"type": "string"},
          "requiredCategorySteps": {
            "type": "object",
            "propertyNames": {
              "enum": ["introduction", "rapport", "discovery", "objection_handling", "closing"]
            },
            "additionalProperties": {
              "type": "array",
              "items": {"type": "string"}
            }
          },
          "successTerminalId": {"type": "string"},
          "failureTerminalIds": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`
