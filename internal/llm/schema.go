package llm

// ClassificationSchema constrains the classifier answer to the label vocabulary.
func ClassificationSchema(labels []string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"properties": map[string]any{
			"label": map[string]any{"type": "string", "enum": labels},
		},
		"required": []string{"label"},
	}
}

// NumberSchema constrains the number corrector answer.
func NumberSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"value": map[string]any{"type": []string{"number", "null"}},
		},
		"required": []string{"value"},
	}
}
