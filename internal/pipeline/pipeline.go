// Package pipeline implements the processors for the fixed document
// pipeline: extraction, language detection, translation, entity
// extraction, ingestion, and the generation stages. Processors consume
// worker-attached job results; heavy computation happens out of
// process.
package pipeline

import (
	"fmt"

	"github.com/corpus-kb/corpus/internal/jobs"
	"github.com/corpus-kb/corpus/internal/store"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Job type identifiers for every stage.
const (
	TypeDocumentExtraction = "document-extraction"
	TypeDetectLanguage     = "detect-language"
	TypeTranslate          = "translate"
	TypeEntityExtraction   = "entity-extraction"
	TypeIngestContent      = "ingest-content"
	TypeSummarize          = "summarize"
	TypeKeyPoint           = "key-point"
	TypeKeywords           = "keywords"
	TypeAsk                = "ask"
)

// Translate job modes.
const (
	ModeContent             = "content"
	ModeEntitiesPendingBatch = "entities-pending-batch"
	ModeEntitiesBatch       = "entities-batch"
	ModeEntity              = "entity"
)

// RegisterAll wires every pipeline processor into the registry.
func RegisterAll(registry *jobs.Registry) {
	registry.Register(&ExtractionProcessor{})
	registry.Register(&DetectLanguageProcessor{})
	registry.Register(&TranslateProcessor{})
	registry.Register(&EntityExtractionProcessor{})
	registry.Register(&IngestProcessor{})
	registry.Register(&SummarizeProcessor{})
	registry.Register(&KeyPointProcessor{})
	registry.Register(&KeywordsProcessor{})
	registry.Register(&AskProcessor{})
}

// mustSchema compiles an embedded result schema at init.
func mustSchema(name, src string) *jsonschema.Schema {
	schema, err := jsonschema.CompileString(name, src)
	if err != nil {
		panic(fmt.Sprintf("invalid %s schema: %v", name, err))
	}
	return schema
}

// validatedResult decodes the job's result and validates it against
// the stage's schema, failing fast on absent or malformed results.
func validatedResult(job *store.Job, schema *jsonschema.Schema) (map[string]any, error) {
	result, err := job.ResultMap()
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("job %s has no result", job.ID)
	}
	if err := schema.Validate(map[string]any(result)); err != nil {
		return nil, fmt.Errorf("invalid result for job %s: %w", job.ID, err)
	}
	return result, nil
}

// payloadString extracts a required string field from the job payload.
func payloadString(payload map[string]any, key string) (string, error) {
	value, ok := payload[key].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("payload missing %q", key)
	}
	return value, nil
}

// optionalString extracts an optional string field.
func optionalString(payload map[string]any, key string) string {
	value, _ := payload[key].(string)
	return value
}

// stringSlice extracts a list of strings from a decoded JSON value.
func stringSlice(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
