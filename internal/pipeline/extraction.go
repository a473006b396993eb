package pipeline

import (
	"context"
	"fmt"

	"github.com/corpus-kb/corpus/internal/htmldoc"
	"github.com/corpus-kb/corpus/internal/jobs"
	"github.com/corpus-kb/corpus/internal/store"
)

// detectSampleRunes is how much text each language-detection sample
// carries.
const detectSampleRunes = 1000

var extractionResultSchema = mustSchema("document-extraction.json", `{
	"type": "object",
	"required": ["content"],
	"properties": {
		"title": {"type": "string"},
		"author": {"type": "string"},
		"publicationDate": {"type": "string"},
		"content": {"type": "string", "minLength": 1},
		"pages": {"type": "integer", "minimum": 0}
	}
}`)

// ExtractionProcessor applies the externally extracted document
// content and metadata to the resource, then starts language
// detection.
type ExtractionProcessor struct{}

func (p *ExtractionProcessor) CanProcess(jobType string) bool {
	return jobType == TypeDocumentExtraction
}

func (p *ExtractionProcessor) Process(ctx context.Context, job *store.Job) (map[string]any, error) {
	deps := jobs.DepsFromContext(ctx)

	payload, err := job.PayloadMap()
	if err != nil {
		return nil, err
	}
	resourceID, err := payloadString(payload, "resourceId")
	if err != nil {
		return nil, err
	}
	result, err := validatedResult(job, extractionResultSchema)
	if err != nil {
		return nil, err
	}

	if _, err := deps.Store.GetResource(resourceID); err != nil {
		return nil, fmt.Errorf("resource %s: %w", resourceID, err)
	}

	content := result["content"].(string)
	fields := map[string]any{
		"content":             content,
		"confirmation_status": store.ConfirmationPending,
	}
	if title := optionalString(result, "title"); title != "" {
		fields["title"] = title
	}
	if author := optionalString(result, "author"); author != "" {
		fields["author"] = author
	}
	if date := optionalString(result, "publicationDate"); date != "" {
		fields["publication_date"] = date
	}
	if pages, ok := result["pages"].(float64); ok && pages > 0 {
		fields["pages"] = int(pages)
	}
	if err := deps.Store.UpdateResourceFields(resourceID, fields); err != nil {
		return nil, err
	}

	deps.Notifier.Notify(resourceID, "document extracted")

	text, err := htmldoc.StripTags(content)
	if err != nil {
		return nil, fmt.Errorf("failed to strip content: %w", err)
	}
	first, second := detectionSamples(text)
	_, err = deps.Store.CreateJob(TypeDetectLanguage, store.PriorityNormal, map[string]any{
		"resourceId": resourceID,
		"samples":    []string{first, second},
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{"resourceId": resourceID}, nil
}

// detectionSamples draws two windows from the document text, one from
// the start and one from the middle, so detection sees independent
// regions of a potentially mixed-language document.
func detectionSamples(text string) (string, string) {
	runes := []rune(text)
	first := string(runes[:min(detectSampleRunes, len(runes))])

	mid := len(runes) / 2
	end := min(mid+detectSampleRunes, len(runes))
	second := string(runes[mid:end])
	if second == "" {
		second = first
	}
	return first, second
}
