package ai

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// gradingResultSchema constrains the JSON the model must return. Level
// membership and criterion-id validity are checked downstream against the
// stored rubric, not here.
const gradingResultSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": [
    "criterionScores",
    "totalScore",
    "maxScore",
    "letterGrade",
    "overallFeedback",
    "strengths",
    "improvements",
    "nextSteps"
  ],
  "properties": {
    "criterionScores": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["criterionId", "level", "score", "maxScore", "justification"],
        "properties": {
          "criterionId": {"type": "integer", "minimum": 1},
          "criterionName": {"type": "string"},
          "level": {"type": "string", "minLength": 1},
          "score": {"type": "number", "minimum": 0},
          "maxScore": {"type": "number", "minimum": 0},
          "justification": {"type": "string"}
        }
      }
    },
    "totalScore": {"type": "number", "minimum": 0},
    "maxScore": {"type": "number", "minimum": 0},
    "letterGrade": {"type": "string", "minLength": 1, "maxLength": 2},
    "overallFeedback": {"type": "string", "minLength": 1},
    "strengths": {"type": "array", "items": {"type": "string"}},
    "improvements": {"type": "array", "items": {"type": "string"}},
    "nextSteps": {"type": "array", "items": {"type": "string"}},
    "misconceptions": {"type": "array", "items": {"type": "string"}}
  }
}`

func compileGradingResultSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("grading_result.schema.json", strings.NewReader(gradingResultSchema)); err != nil {
		return nil, fmt.Errorf("add grading result schema: %w", err)
	}

	schema, err := compiler.Compile("grading_result.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile grading result schema: %w", err)
	}

	return schema, nil
}
