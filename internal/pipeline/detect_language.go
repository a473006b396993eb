package pipeline

import (
	"context"
	"fmt"

	"github.com/corpus-kb/corpus/internal/htmldoc"
	"github.com/corpus-kb/corpus/internal/jobs"
	"github.com/corpus-kb/corpus/internal/store"
)

var detectLanguageResultSchema = mustSchema("detect-language.json", `{
	"type": "object",
	"required": ["languages"],
	"properties": {
		"languages": {
			"type": "array",
			"minItems": 2,
			"items": {"type": "string", "minLength": 1}
		}
	}
}`)

// DetectLanguageProcessor stores the detected document language once
// two independent samples agree, then branches the pipeline: English
// documents go straight to entity extraction and ingestion,
// non-English documents are first translated to English. A second
// translation towards the configured target locale is enqueued
// whenever the document is not already in it.
type DetectLanguageProcessor struct{}

func (p *DetectLanguageProcessor) CanProcess(jobType string) bool {
	return jobType == TypeDetectLanguage
}

func (p *DetectLanguageProcessor) Process(ctx context.Context, job *store.Job) (map[string]any, error) {
	deps := jobs.DepsFromContext(ctx)

	payload, err := job.PayloadMap()
	if err != nil {
		return nil, err
	}
	resourceID, err := payloadString(payload, "resourceId")
	if err != nil {
		return nil, err
	}
	result, err := validatedResult(job, detectLanguageResultSchema)
	if err != nil {
		return nil, err
	}

	languages := stringSlice(result["languages"])
	if len(languages) < 2 {
		return nil, fmt.Errorf("need two language samples, got %d", len(languages))
	}
	if languages[0] != languages[1] {
		return nil, fmt.Errorf("language samples disagree: %s vs %s", languages[0], languages[1])
	}
	language := languages[0]
	if language == "unknown" {
		return nil, fmt.Errorf("language detection returned unknown")
	}

	resource, err := deps.Store.GetResource(resourceID)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", resourceID, err)
	}
	if err := deps.Store.UpdateResourceFields(resourceID, map[string]any{"language": language}); err != nil {
		return nil, err
	}
	deps.Notifier.Notify(resourceID, "language detected: "+language)

	fragments, err := htmldoc.ExtractTexts(resource.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to extract content fragments: %w", err)
	}

	if language == "en" {
		// Already English: extract entities from the original content
		// and ingest directly.
		_, err = deps.Store.CreateJob(TypeEntityExtraction, store.PriorityNormal, map[string]any{
			"resourceId": resourceID,
			"from":       "content",
		})
		if err != nil {
			return nil, err
		}
		if _, err := deps.Store.CreateJob(TypeIngestContent, store.PriorityNormal, map[string]any{
			"resourceId": resourceID,
		}); err != nil {
			return nil, err
		}
	} else {
		// Normalize to English first; entity extraction and ingestion
		// chain off the finished translation.
		if err := createContentTranslate(deps, resourceID, language, "en", "workingContent", fragments); err != nil {
			return nil, err
		}
	}

	target := deps.Config.Pipeline.TargetLocale
	if target != "" && language != target {
		if err := createContentTranslate(deps, resourceID, language, target, "translatedContent", fragments); err != nil {
			return nil, err
		}
	}

	return map[string]any{"language": language}, nil
}

func createContentTranslate(deps jobs.Dependencies, resourceID, source, target, saveTo string, fragments []htmldoc.Fragment) error {
	_, err := deps.Store.CreateJob(TypeTranslate, store.PriorityNormal, map[string]any{
		"resourceId": resourceID,
		"mode":       ModeContent,
		"source":     source,
		"target":     target,
		"saveTo":     saveTo,
		"fragments":  fragments,
	})
	return err
}
