package pipeline

import (
	"context"
	"fmt"

	"github.com/corpus-kb/corpus/internal/batch"
	"github.com/corpus-kb/corpus/internal/htmldoc"
	"github.com/corpus-kb/corpus/internal/jobs"
	"github.com/corpus-kb/corpus/internal/store"
)

var translateContentResultSchema = mustSchema("translate-content.json", `{
	"type": "object",
	"required": ["response"],
	"properties": {
		"response": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["path", "original_text", "translation_text"],
				"properties": {
					"path": {"type": "string"},
					"original_text": {"type": "string"},
					"translation_text": {"type": "string"}
				}
			}
		}
	}
}`)

var translateEntitiesResultSchema = mustSchema("translate-entities.json", `{
	"type": "object",
	"required": ["translations"],
	"properties": {
		"translations": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "translation"],
				"properties": {
					"name": {"type": "string"},
					"translation": {"type": "string"}
				}
			}
		}
	}
}`)

// TranslateProcessor applies externally produced translations. Mode
// "content" rewrites the document HTML; the entity modes fold
// translated names into pending or confirmed entities.
type TranslateProcessor struct{}

func (p *TranslateProcessor) CanProcess(jobType string) bool {
	return jobType == TypeTranslate
}

func (p *TranslateProcessor) Process(ctx context.Context, job *store.Job) (map[string]any, error) {
	deps := jobs.DepsFromContext(ctx)

	payload, err := job.PayloadMap()
	if err != nil {
		return nil, err
	}

	mode := optionalString(payload, "mode")
	switch mode {
	case ModeContent:
		return p.processContent(ctx, deps, job, payload)
	case ModeEntitiesPendingBatch:
		return p.processPendingBatch(ctx, deps, job, payload)
	case ModeEntitiesBatch:
		return p.processEntitiesBatch(ctx, deps, job, payload)
	case ModeEntity:
		return p.processEntity(ctx, deps, job, payload)
	default:
		return nil, fmt.Errorf("unknown translate mode %q", mode)
	}
}

// processContent rewrites the resource's stored HTML with the
// translated fragments. All paths are resolved against one parse and
// applied in a single pass; the resulting body is saved to the
// payload's saveTo field.
func (p *TranslateProcessor) processContent(ctx context.Context, deps jobs.Dependencies, job *store.Job, payload map[string]any) (map[string]any, error) {
	resourceID, err := payloadString(payload, "resourceId")
	if err != nil {
		return nil, err
	}
	saveTo, err := payloadString(payload, "saveTo")
	if err != nil {
		return nil, err
	}
	column, err := contentColumn(saveTo)
	if err != nil {
		return nil, err
	}
	result, err := validatedResult(job, translateContentResultSchema)
	if err != nil {
		return nil, err
	}

	resource, err := deps.Store.GetResource(resourceID)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", resourceID, err)
	}

	var replacements []htmldoc.Replacement
	for _, item := range result["response"].([]any) {
		entry := item.(map[string]any)
		replacements = append(replacements, htmldoc.Replacement{
			Path:     entry["path"].(string),
			Original: entry["original_text"].(string),
			Text:     entry["translation_text"].(string),
		})
	}

	translated, err := htmldoc.ApplyReplacements(resource.Content, replacements)
	if err != nil {
		return nil, fmt.Errorf("failed to rewrite content: %w", err)
	}
	if err := deps.Store.UpdateResourceFields(resourceID, map[string]any{column: translated}); err != nil {
		return nil, err
	}
	deps.Notifier.Notify(resourceID, "translation saved: "+saveTo)

	// Finishing the English normalization unlocks entity extraction
	// and ingestion.
	if saveTo == "workingContent" {
		_, err = deps.Store.CreateJob(TypeEntityExtraction, store.PriorityNormal, map[string]any{
			"resourceId": resourceID,
			"from":       "workingContent",
		})
		if err != nil {
			return nil, err
		}
		if _, err := deps.Store.CreateJob(TypeIngestContent, store.PriorityNormal, map[string]any{
			"resourceId": resourceID,
		}); err != nil {
			return nil, err
		}
	}

	return map[string]any{"replacements": len(replacements), "saveTo": saveTo}, nil
}

func contentColumn(saveTo string) (string, error) {
	switch saveTo {
	case "workingContent":
		return "working_content", nil
	case "translatedContent":
		return "translated_content", nil
	default:
		return "", fmt.Errorf("unknown saveTo field %q", saveTo)
	}
}

// translationPair is one translated entity name.
type translationPair struct {
	name, translation string
}

func decodeTranslations(result map[string]any) []translationPair {
	var pairs []translationPair
	for _, item := range result["translations"].([]any) {
		entry := item.(map[string]any)
		pairs = append(pairs, translationPair{
			name:        entry["name"].(string),
			translation: entry["translation"].(string),
		})
	}
	return pairs
}

// processPendingBatch merges one locale's entity translations into the
// resource's pending entities, then re-enqueues itself for the next
// remaining locale (language-at-a-time chaining keeps each payload
// bounded).
func (p *TranslateProcessor) processPendingBatch(ctx context.Context, deps jobs.Dependencies, job *store.Job, payload map[string]any) (map[string]any, error) {
	resourceID, err := payloadString(payload, "resourceId")
	if err != nil {
		return nil, err
	}
	locale, err := payloadString(payload, "locale")
	if err != nil {
		return nil, err
	}
	result, err := validatedResult(job, translateEntitiesResultSchema)
	if err != nil {
		return nil, err
	}
	if _, err := deps.Store.GetResource(resourceID); err != nil {
		return nil, fmt.Errorf("resource %s: %w", resourceID, err)
	}

	pairs := decodeTranslations(result)
	results := batch.Map(ctx, pairs, deps.Config.Pipeline.BatchConcurrency, func(ctx context.Context, pair translationPair) (struct{}, error) {
		return struct{}{}, deps.Entities.UpsertPendingTranslation(resourceID, pair.name, locale, pair.translation)
	})

	merged := 0
	for i, r := range results {
		if r.Err != nil {
			deps.Logger.Warn("failed to merge entity translation",
				"resource", resourceID, "name", pairs[i].name, "locale", locale, "error", r.Err)
			continue
		}
		merged++
	}

	remaining := stringSlice(payload["remaining"])
	if len(remaining) > 0 {
		next := map[string]any{
			"resourceId": resourceID,
			"mode":       ModeEntitiesPendingBatch,
			"locale":     remaining[0],
			"remaining":  remaining[1:],
			"names":      payload["names"],
		}
		if _, err := deps.Store.CreateJob(TypeTranslate, store.PriorityNormal, next); err != nil {
			return nil, err
		}
	}

	return map[string]any{"locale": locale, "merged": merged}, nil
}

// processEntitiesBatch folds one locale's translations into confirmed
// entities matched by name.
func (p *TranslateProcessor) processEntitiesBatch(ctx context.Context, deps jobs.Dependencies, job *store.Job, payload map[string]any) (map[string]any, error) {
	locale, err := payloadString(payload, "locale")
	if err != nil {
		return nil, err
	}
	result, err := validatedResult(job, translateEntitiesResultSchema)
	if err != nil {
		return nil, err
	}

	pairs := decodeTranslations(result)
	merged := 0
	for _, pair := range pairs {
		entity, err := deps.Store.FindEntityByName(pair.name)
		if err != nil {
			deps.Logger.Warn("no entity for translation", "name", pair.name, "error", err)
			continue
		}
		if err := deps.Entities.UpsertEntityTranslation(entity.ID, locale, pair.translation); err != nil {
			deps.Logger.Warn("failed to update entity translation", "name", pair.name, "error", err)
			continue
		}
		merged++
	}

	return map[string]any{"locale": locale, "merged": merged}, nil
}

// processEntity folds translations into one confirmed entity by ID.
func (p *TranslateProcessor) processEntity(ctx context.Context, deps jobs.Dependencies, job *store.Job, payload map[string]any) (map[string]any, error) {
	entityID, err := payloadString(payload, "entityId")
	if err != nil {
		return nil, err
	}
	locale, err := payloadString(payload, "locale")
	if err != nil {
		return nil, err
	}
	result, err := validatedResult(job, translateEntitiesResultSchema)
	if err != nil {
		return nil, err
	}

	for _, pair := range decodeTranslations(result) {
		if err := deps.Entities.UpsertEntityTranslation(entityID, locale, pair.translation); err != nil {
			return nil, err
		}
	}

	return map[string]any{"entityId": entityID, "locale": locale}, nil
}
