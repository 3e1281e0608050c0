package ai

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/invopop/jsonschema"
)

// Quiz is the structured answer requested for quiz mode.
type Quiz struct {
	Topic     string         `json:"topic" jsonschema:"required,description=Short name of the quiz topic"`
	Questions []QuizQuestion `json:"questions" jsonschema:"required"`
}

// QuizQuestion is one multiple-choice question.
type QuizQuestion struct {
	Prompt      string   `json:"prompt" jsonschema:"required"`
	Options     []string `json:"options" jsonschema:"required,description=Four answer options"`
	AnswerIndex int      `json:"answer_index" jsonschema:"required,description=Zero-based index of the correct option"`
	Explanation string   `json:"explanation" jsonschema:"required"`
}

var quizSchema = generateSchema[Quiz]()

// Markdown renders the quiz in the markup dialect the display surface understands.
func (q Quiz) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Quick Quiz: %s", strings.TrimSpace(q.Topic))
	for i, question := range q.Questions {
		fmt.Fprintf(&b, "\n\n**%d. %s**", i+1, strings.TrimSpace(question.Prompt))
		for j, option := range question.Options {
			fmt.Fprintf(&b, "\n%c) %s", 'A'+rune(j), strings.TrimSpace(option))
		}
	}

	b.WriteString("\n\n### Answers")
	for i, question := range q.Questions {
		answer := "?"
		if question.AnswerIndex >= 0 && question.AnswerIndex < len(question.Options) {
			answer = string(rune('A' + question.AnswerIndex))
		}
		fmt.Fprintf(&b, "\n%d. *%s* %s", i+1, answer, strings.TrimSpace(question.Explanation))
	}
	return b.String()
}

func generateSchema[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	schemaObj, err := schemaToMap(schema)
	if err != nil {
		panic(err)
	}
	ensureStrictCompliance(schemaObj)
	return schemaObj
}

func schemaToMap(schema *jsonschema.Schema) (map[string]interface{}, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ensureStrictCompliance marks every object closed with all properties
// required, as strict structured outputs demand.
func ensureStrictCompliance(schema map[string]interface{}) {
	if schemaType, ok := schema["type"].(string); ok && schemaType == "object" {
		schema["additionalProperties"] = false

		if properties, ok := schema["properties"].(map[string]interface{}); ok {
			required := make([]string, 0, len(properties))
			for name := range properties {
				required = append(required, name)
			}
			if len(required) > 0 {
				schema["required"] = required
			}
		}
	}

	if properties, ok := schema["properties"].(map[string]interface{}); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]interface{}); ok {
				ensureStrictCompliance(propMap)
			}
		}
	}

	if items, ok := schema["items"].(map[string]interface{}); ok {
		ensureStrictCompliance(items)
	}
}

// decodeModelJSON unmarshals JSON from model output, tolerating text around
// the first top-level object.
func decodeModelJSON(outputText string, v any) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return io.ErrUnexpectedEOF
	}

	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("no JSON object found in model output (len=%d)", len(s))
	}

	sub := s[start : end+1]
	if err := json.Unmarshal([]byte(sub), v); err != nil {
		return fmt.Errorf("failed to unmarshal extracted JSON (len=%d): %w", len(sub), err)
	}
	return nil
}
