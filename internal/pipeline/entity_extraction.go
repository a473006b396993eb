package pipeline

import (
	"context"
	"fmt"

	"github.com/corpus-kb/corpus/internal/batch"
	"github.com/corpus-kb/corpus/internal/jobs"
	"github.com/corpus-kb/corpus/internal/store"
)

var entityExtractionResultSchema = mustSchema("entity-extraction.json", `{
	"type": "object",
	"required": ["entities"],
	"properties": {
		"entities": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["word", "entity"],
				"properties": {
					"word": {"type": "string", "minLength": 1},
					"entity": {"type": "string"}
				}
			}
		}
	}
}`)

// extractedEntity is one NER hit.
type extractedEntity struct {
	word, tag string
}

// EntityExtractionProcessor turns NER output into pending entities:
// clears the resource's previous pending set, creates one pending
// entity per distinct extracted name with a bounded worker pool, and
// starts the entity translation chain for every locale still needed.
type EntityExtractionProcessor struct{}

func (p *EntityExtractionProcessor) CanProcess(jobType string) bool {
	return jobType == TypeEntityExtraction
}

func (p *EntityExtractionProcessor) Process(ctx context.Context, job *store.Job) (map[string]any, error) {
	deps := jobs.DepsFromContext(ctx)

	payload, err := job.PayloadMap()
	if err != nil {
		return nil, err
	}
	resourceID, err := payloadString(payload, "resourceId")
	if err != nil {
		return nil, err
	}
	result, err := validatedResult(job, entityExtractionResultSchema)
	if err != nil {
		return nil, err
	}

	resource, err := deps.Store.GetResource(resourceID)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", resourceID, err)
	}

	// One pending entity per distinct extracted name; the first tag
	// for a name wins.
	seen := make(map[string]struct{})
	var distinct []extractedEntity
	for _, item := range result["entities"].([]any) {
		entry := item.(map[string]any)
		word, _ := entry["word"].(string)
		tag, _ := entry["entity"].(string)
		if word == "" {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		distinct = append(distinct, extractedEntity{word: word, tag: tag})
	}

	// Re-extraction replaces the previous pending set.
	if err := deps.Entities.ClearPending(resourceID); err != nil {
		return nil, err
	}

	results := batch.Map(ctx, distinct, deps.Config.Pipeline.BatchConcurrency, func(ctx context.Context, e extractedEntity) (*store.PendingEntity, error) {
		return deps.Entities.CreatePending(resourceID, e.word, e.tag, resource.Language)
	})

	created := 0
	names := make([]string, 0, len(distinct))
	for i, r := range results {
		if r.Err != nil {
			deps.Logger.Warn("failed to create pending entity",
				"resource", resourceID, "name", distinct[i].word, "error", r.Err)
			continue
		}
		created++
		names = append(names, distinct[i].word)
	}

	deps.Notifier.Notify(resourceID, fmt.Sprintf("%d entities extracted", created))

	// Entity names need translations for the document's language and
	// the configured target locale, one locale at a time. The names
	// are always English at this point (NER runs on English text).
	locales := entityLocales(resource.Language, deps.Config.Pipeline.TargetLocale)
	if len(locales) > 0 && len(names) > 0 {
		_, err = deps.Store.CreateJob(TypeTranslate, store.PriorityNormal, map[string]any{
			"resourceId": resourceID,
			"mode":       ModeEntitiesPendingBatch,
			"locale":     locales[0],
			"remaining":  locales[1:],
			"names":      names,
		})
		if err != nil {
			return nil, err
		}
	}

	return map[string]any{"created": created}, nil
}

// entityLocales returns the locales entity names still need, in
// chaining order: document language first, then the target locale,
// skipping English and duplicates.
func entityLocales(language, target string) []string {
	var locales []string
	if language != "" && language != "en" {
		locales = append(locales, language)
	}
	if target != "" && target != "en" && target != language {
		locales = append(locales, target)
	}
	return locales
}
