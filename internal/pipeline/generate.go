package pipeline

import (
	"context"
	"fmt"

	"github.com/corpus-kb/corpus/internal/jobs"
	"github.com/corpus-kb/corpus/internal/store"
	"gorm.io/datatypes"
)

var responseResultSchema = mustSchema("response.json", `{
	"type": "object",
	"required": ["response"],
	"properties": {
		"response": {"type": "string"}
	}
}`)

var keyPointsResultSchema = mustSchema("key-points.json", `{
	"type": "object",
	"required": ["key_points"],
	"properties": {
		"key_points": {
			"type": "array",
			"items": {"type": "string"}
		}
	}
}`)

var keywordsResultSchema = mustSchema("keywords.json", `{
	"type": "object",
	"required": ["keywords"],
	"properties": {
		"keywords": {
			"type": "array",
			"items": {"type": "string"}
		}
	}
}`)

// IngestProcessor feeds the resource's English content into the RAG
// service, synchronously.
type IngestProcessor struct{}

func (p *IngestProcessor) CanProcess(jobType string) bool {
	return jobType == TypeIngestContent
}

func (p *IngestProcessor) Process(ctx context.Context, job *store.Job) (map[string]any, error) {
	deps := jobs.DepsFromContext(ctx)

	payload, err := job.PayloadMap()
	if err != nil {
		return nil, err
	}
	resourceID, err := payloadString(payload, "resourceId")
	if err != nil {
		return nil, err
	}

	resource, err := deps.Store.GetResource(resourceID)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", resourceID, err)
	}

	content := resource.WorkingContent
	if content == "" {
		content = resource.Content
	}
	if content == "" {
		return nil, fmt.Errorf("resource %s has no content to ingest", resourceID)
	}

	if err := deps.Generator.Ingest(ctx, resourceID, content); err != nil {
		return nil, fmt.Errorf("ingest failed: %w", err)
	}

	deps.Notifier.Notify(resourceID, "content ingested")
	return map[string]any{"resourceId": resourceID}, nil
}

// SummarizeProcessor stores the externally generated summary.
type SummarizeProcessor struct{}

func (p *SummarizeProcessor) CanProcess(jobType string) bool {
	return jobType == TypeSummarize
}

func (p *SummarizeProcessor) Process(ctx context.Context, job *store.Job) (map[string]any, error) {
	deps := jobs.DepsFromContext(ctx)

	payload, err := job.PayloadMap()
	if err != nil {
		return nil, err
	}
	resourceID, err := payloadString(payload, "resourceId")
	if err != nil {
		return nil, err
	}
	result, err := validatedResult(job, responseResultSchema)
	if err != nil {
		return nil, err
	}

	if err := deps.Store.UpdateResourceFields(resourceID, map[string]any{
		"summary": result["response"].(string),
	}); err != nil {
		return nil, err
	}

	deps.Notifier.Notify(resourceID, "summary ready")
	return map[string]any{"resourceId": resourceID}, nil
}

// KeyPointProcessor stores externally generated key points.
type KeyPointProcessor struct{}

func (p *KeyPointProcessor) CanProcess(jobType string) bool {
	return jobType == TypeKeyPoint
}

func (p *KeyPointProcessor) Process(ctx context.Context, job *store.Job) (map[string]any, error) {
	deps := jobs.DepsFromContext(ctx)

	payload, err := job.PayloadMap()
	if err != nil {
		return nil, err
	}
	resourceID, err := payloadString(payload, "resourceId")
	if err != nil {
		return nil, err
	}
	result, err := validatedResult(job, keyPointsResultSchema)
	if err != nil {
		return nil, err
	}

	points := stringSlice(result["key_points"])
	if err := deps.Store.UpdateResourceFields(resourceID, map[string]any{
		"key_points": datatypes.NewJSONSlice(points),
	}); err != nil {
		return nil, err
	}

	deps.Notifier.Notify(resourceID, "key points ready")
	return map[string]any{"count": len(points)}, nil
}

// KeywordsProcessor stores externally generated keywords.
type KeywordsProcessor struct{}

func (p *KeywordsProcessor) CanProcess(jobType string) bool {
	return jobType == TypeKeywords
}

func (p *KeywordsProcessor) Process(ctx context.Context, job *store.Job) (map[string]any, error) {
	deps := jobs.DepsFromContext(ctx)

	payload, err := job.PayloadMap()
	if err != nil {
		return nil, err
	}
	resourceID, err := payloadString(payload, "resourceId")
	if err != nil {
		return nil, err
	}
	result, err := validatedResult(job, keywordsResultSchema)
	if err != nil {
		return nil, err
	}

	keywords := stringSlice(result["keywords"])
	if err := deps.Store.UpdateResourceFields(resourceID, map[string]any{
		"keywords": datatypes.NewJSONSlice(keywords),
	}); err != nil {
		return nil, err
	}

	deps.Notifier.Notify(resourceID, "keywords ready")
	return map[string]any{"count": len(keywords)}, nil
}

// AskProcessor broadcasts the externally generated answer to a
// question about a resource.
type AskProcessor struct{}

func (p *AskProcessor) CanProcess(jobType string) bool {
	return jobType == TypeAsk
}

func (p *AskProcessor) Process(ctx context.Context, job *store.Job) (map[string]any, error) {
	deps := jobs.DepsFromContext(ctx)

	payload, err := job.PayloadMap()
	if err != nil {
		return nil, err
	}
	resourceID, err := payloadString(payload, "resourceId")
	if err != nil {
		return nil, err
	}
	question := optionalString(payload, "question")
	result, err := validatedResult(job, responseResultSchema)
	if err != nil {
		return nil, err
	}

	deps.Notifier.AskResponse(resourceID, question, result["response"].(string))
	return map[string]any{"resourceId": resourceID}, nil
}
