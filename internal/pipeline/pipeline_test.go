package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/corpus-kb/corpus/internal/config"
	"github.com/corpus-kb/corpus/internal/entities"
	"github.com/corpus-kb/corpus/internal/extsvc"
	"github.com/corpus-kb/corpus/internal/jobs"
	"github.com/corpus-kb/corpus/internal/store"
)

type recordingNotifier struct {
	mu    sync.Mutex
	notes []string
	asks  []string
}

func (n *recordingNotifier) Notify(resourceID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, resourceID+": "+message)
}

func (n *recordingNotifier) AskResponse(resourceID, question, response string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.asks = append(n.asks, fmt.Sprintf("%s: %s -> %s", resourceID, question, response))
}

type calmSampler struct{}

func (calmSampler) Sample(ctx context.Context) (float64, float64, error) { return 5, 5, nil }

type testEnv struct {
	store      *store.Store
	dispatcher *jobs.Dispatcher
	notifier   *recordingNotifier
	generator  *extsvc.MockGenerator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s, err := store.Open("sqlite", ":memory:", slog.Default())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	notifier := &recordingNotifier{}
	generator := extsvc.NewMockGenerator()
	deps := jobs.Dependencies{
		Store:     s,
		Entities:  entities.NewService(s, slog.Default()),
		Generator: generator,
		Notifier:  notifier,
		Config:    config.DefaultConfig(),
		Logger:    slog.Default(),
	}

	registry := jobs.NewRegistry()
	RegisterAll(registry)
	dispatcher := jobs.NewDispatcher(s, registry, deps, jobs.DispatcherConfig{Sampler: calmSampler{}}, slog.Default())

	return &testEnv{store: s, dispatcher: dispatcher, notifier: notifier, generator: generator}
}

func (env *testEnv) makeResource(t *testing.T, hash string) *store.Resource {
	t.Helper()
	r := &store.Resource{Name: "doc-" + hash, Hash: hash, UploadDate: time.Now()}
	if err := env.store.CreateResource(r); err != nil {
		t.Fatal(err)
	}
	return r
}

// runJob creates a job, attaches a worker result moving it to
// processed, and runs one dispatcher tick.
func (env *testEnv) runJob(t *testing.T, jobType string, payload, result map[string]any) *store.Job {
	t.Helper()
	job, err := env.store.CreateJob(jobType, store.PriorityNormal, payload)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.store.AttachJobResult(job.ID, result, store.JobStatusProcessed); err != nil {
		t.Fatal(err)
	}
	env.dispatcher.Tick(context.Background())

	got, err := env.store.GetJob(job.ID)
	if err != nil {
		t.Fatal(err)
	}
	return got
}

// pendingJobs returns pending jobs of one type.
func (env *testEnv) pendingJobs(t *testing.T, jobType string) []store.Job {
	t.Helper()
	list, err := env.store.ListJobs(store.JobFilter{Status: store.JobStatusPending, Type: jobType})
	if err != nil {
		t.Fatal(err)
	}
	return list
}

func TestExtractionProcessor(t *testing.T) {
	env := newTestEnv(t)
	r := env.makeResource(t, "h-extract")

	job := env.runJob(t, TypeDocumentExtraction,
		map[string]any{"resourceId": r.ID, "hash": r.Hash, "extension": "pdf"},
		map[string]any{
			"title":           "Don Quijote",
			"author":          "Cervantes",
			"publicationDate": "1605",
			"content":         "<html><body><p>En un lugar de la Mancha</p></body></html>",
			"pages":           863,
		})

	if job.Status != store.JobStatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", job.Status, job.Error)
	}

	got, _ := env.store.GetResource(r.ID)
	if got.Title != "Don Quijote" || got.Author != "Cervantes" || got.Pages != 863 {
		t.Errorf("expected metadata stored, got %+v", got)
	}
	if got.ConfirmationStatus != store.ConfirmationPending {
		t.Errorf("expected pending confirmation, got %s", got.ConfirmationStatus)
	}

	next := env.pendingJobs(t, TypeDetectLanguage)
	if len(next) != 1 {
		t.Fatalf("expected one detect-language job, got %d", len(next))
	}
	payload, _ := next[0].PayloadMap()
	samples := payload["samples"].([]any)
	if len(samples) != 2 {
		t.Errorf("expected two detection samples, got %d", len(samples))
	}

	t.Run("missing content fails the job", func(t *testing.T) {
		failed := env.runJob(t, TypeDocumentExtraction,
			map[string]any{"resourceId": r.ID},
			map[string]any{"title": "no content"})
		if failed.Status != store.JobStatusFailed {
			t.Errorf("expected failed on schema violation, got %s", failed.Status)
		}
	})

	t.Run("deleted resource fails the job", func(t *testing.T) {
		failed := env.runJob(t, TypeDocumentExtraction,
			map[string]any{"resourceId": "gone"},
			map[string]any{"content": "<p>x</p>"})
		if failed.Status != store.JobStatusFailed {
			t.Errorf("expected failed on dangling resource, got %s", failed.Status)
		}
	})
}

func TestDetectLanguageProcessor(t *testing.T) {
	t.Run("English goes straight to extraction and ingestion", func(t *testing.T) {
		env := newTestEnv(t)
		r := env.makeResource(t, "h-en")
		env.store.UpdateResourceFields(r.ID, map[string]any{"content": "<html><body><p>Hello there</p></body></html>"})

		job := env.runJob(t, TypeDetectLanguage,
			map[string]any{"resourceId": r.ID, "samples": []string{"a", "b"}},
			map[string]any{"languages": []string{"en", "en"}})
		if job.Status != store.JobStatusCompleted {
			t.Fatalf("expected completed, got %s (%s)", job.Status, job.Error)
		}

		got, _ := env.store.GetResource(r.ID)
		if got.Language != "en" {
			t.Errorf("expected language en, got %s", got.Language)
		}

		extraction := env.pendingJobs(t, TypeEntityExtraction)
		if len(extraction) != 1 {
			t.Fatalf("expected entity-extraction job, got %d", len(extraction))
		}
		payload, _ := extraction[0].PayloadMap()
		if payload["from"] != "content" {
			t.Errorf("expected extraction from content, got %v", payload["from"])
		}
		if len(env.pendingJobs(t, TypeIngestContent)) != 1 {
			t.Error("expected ingest-content job")
		}

		// en != target locale (es): a translated rendition is queued.
		translates := env.pendingJobs(t, TypeTranslate)
		if len(translates) != 1 {
			t.Fatalf("expected one translate job, got %d", len(translates))
		}
		tp, _ := translates[0].PayloadMap()
		if tp["target"] != "es" || tp["saveTo"] != "translatedContent" {
			t.Errorf("expected es translation job, got %v", tp)
		}
	})

	t.Run("non-English normalizes to English first", func(t *testing.T) {
		env := newTestEnv(t)
		r := env.makeResource(t, "h-es")
		env.store.UpdateResourceFields(r.ID, map[string]any{"content": "<html><body><p>Hola</p></body></html>"})

		job := env.runJob(t, TypeDetectLanguage,
			map[string]any{"resourceId": r.ID, "samples": []string{"a", "b"}},
			map[string]any{"languages": []string{"es", "es"}})
		if job.Status != store.JobStatusCompleted {
			t.Fatalf("expected completed, got %s (%s)", job.Status, job.Error)
		}

		if len(env.pendingJobs(t, TypeEntityExtraction)) != 0 {
			t.Error("expected no entity extraction before normalization")
		}
		translates := env.pendingJobs(t, TypeTranslate)
		if len(translates) != 1 {
			t.Fatalf("expected exactly the en normalization translate job, got %d", len(translates))
		}
		tp, _ := translates[0].PayloadMap()
		if tp["target"] != "en" || tp["saveTo"] != "workingContent" {
			t.Errorf("expected es->en normalization, got %v", tp)
		}
	})

	t.Run("disagreeing samples fail", func(t *testing.T) {
		env := newTestEnv(t)
		r := env.makeResource(t, "h-mixed")
		env.store.UpdateResourceFields(r.ID, map[string]any{"content": "<p>x</p>"})

		job := env.runJob(t, TypeDetectLanguage,
			map[string]any{"resourceId": r.ID},
			map[string]any{"languages": []string{"en", "es"}})
		if job.Status != store.JobStatusFailed {
			t.Errorf("expected failed on disagreement, got %s", job.Status)
		}
	})

	t.Run("unknown language fails", func(t *testing.T) {
		env := newTestEnv(t)
		r := env.makeResource(t, "h-unknown")
		env.store.UpdateResourceFields(r.ID, map[string]any{"content": "<p>x</p>"})

		job := env.runJob(t, TypeDetectLanguage,
			map[string]any{"resourceId": r.ID},
			map[string]any{"languages": []string{"unknown", "unknown"}})
		if job.Status != store.JobStatusFailed {
			t.Errorf("expected failed on unknown language, got %s", job.Status)
		}
	})
}

func TestTranslateProcessor_Content(t *testing.T) {
	env := newTestEnv(t)
	r := env.makeResource(t, "h-translate")
	content := "<html><body><div><p>Hola mundo</p><p>Adiós</p></div></body></html>"
	env.store.UpdateResourceFields(r.ID, map[string]any{"content": content, "language": "es"})

	job := env.runJob(t, TypeTranslate,
		map[string]any{
			"resourceId": r.ID,
			"mode":       ModeContent,
			"source":     "es",
			"target":     "en",
			"saveTo":     "workingContent",
		},
		map[string]any{"response": []map[string]any{
			{"path": "body > div > p:nth-child(1)", "original_text": "Hola mundo", "translation_text": "Hello world"},
			{"path": "body > div > p:nth-child(2)", "original_text": "Adiós", "translation_text": "Goodbye"},
		}})
	if job.Status != store.JobStatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", job.Status, job.Error)
	}

	got, _ := env.store.GetResource(r.ID)
	if !strings.Contains(got.WorkingContent, "Hello world") || !strings.Contains(got.WorkingContent, "Goodbye") {
		t.Errorf("expected translated working content, got %q", got.WorkingContent)
	}
	if got.Content != content {
		t.Error("expected original content untouched")
	}

	t.Run("normalization unlocks extraction and ingestion", func(t *testing.T) {
		if len(env.pendingJobs(t, TypeEntityExtraction)) != 1 {
			t.Error("expected entity-extraction follow-up")
		}
		if len(env.pendingJobs(t, TypeIngestContent)) != 1 {
			t.Error("expected ingest-content follow-up")
		}
	})

	t.Run("target-locale rendition does not chain", func(t *testing.T) {
		env := newTestEnv(t)
		r := env.makeResource(t, "h-target")
		env.store.UpdateResourceFields(r.ID, map[string]any{"content": "<html><body><p>Hi</p></body></html>"})

		job := env.runJob(t, TypeTranslate,
			map[string]any{"resourceId": r.ID, "mode": ModeContent, "saveTo": "translatedContent"},
			map[string]any{"response": []map[string]any{
				{"path": "body > p", "original_text": "Hi", "translation_text": "Hola"},
			}})
		if job.Status != store.JobStatusCompleted {
			t.Fatalf("expected completed, got %s (%s)", job.Status, job.Error)
		}
		got, _ := env.store.GetResource(r.ID)
		if !strings.Contains(got.TranslatedContent, "Hola") {
			t.Errorf("expected translated content saved, got %q", got.TranslatedContent)
		}
		if len(env.pendingJobs(t, TypeEntityExtraction)) != 0 {
			t.Error("expected no follow-up jobs for target-locale rendition")
		}
	})

	t.Run("unknown saveTo fails", func(t *testing.T) {
		job := env.runJob(t, TypeTranslate,
			map[string]any{"resourceId": r.ID, "mode": ModeContent, "saveTo": "summary"},
			map[string]any{"response": []map[string]any{}})
		if job.Status != store.JobStatusFailed {
			t.Errorf("expected failed on unknown saveTo, got %s", job.Status)
		}
	})
}

func TestEntityExtractionProcessor(t *testing.T) {
	env := newTestEnv(t)
	r := env.makeResource(t, "h-ner")
	env.store.UpdateResourceFields(r.ID, map[string]any{"language": "es"})

	job := env.runJob(t, TypeEntityExtraction,
		map[string]any{"resourceId": r.ID, "from": "workingContent"},
		map[string]any{"entities": []map[string]any{
			{"word": "Madrid", "entity": "GPE"},
			{"word": "Cervantes", "entity": "PERSON"},
			{"word": "Madrid", "entity": "GPE"}, // duplicate
			{"word": "Acme", "entity": "ORG"},
		}})
	if job.Status != store.JobStatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", job.Status, job.Error)
	}

	pending, _ := env.store.ListPendingByResource(r.ID, true)
	if len(pending) != 3 {
		t.Fatalf("expected 3 distinct pending entities, got %d", len(pending))
	}
	for _, p := range pending {
		if p.Scope != store.ScopeDocument {
			t.Errorf("expected document scope, got %s", p.Scope)
		}
	}

	t.Run("NER tags map to internal vocabulary", func(t *testing.T) {
		byName := map[string]store.PendingEntity{}
		for _, p := range pending {
			byName[p.Name] = p
		}
		if byName["Madrid"].EntityType.Name != "GEOPOLITICAL" {
			t.Errorf("expected GPE->GEOPOLITICAL, got %s", byName["Madrid"].EntityType.Name)
		}
		if byName["Acme"].EntityType.Name != "ORGANIZATION" {
			t.Errorf("expected ORG->ORGANIZATION, got %s", byName["Acme"].EntityType.Name)
		}
	})

	t.Run("starts the entity translation chain", func(t *testing.T) {
		translates := env.pendingJobs(t, TypeTranslate)
		if len(translates) != 1 {
			t.Fatalf("expected one entities-pending-batch job, got %d", len(translates))
		}
		payload, _ := translates[0].PayloadMap()
		if payload["mode"] != ModeEntitiesPendingBatch {
			t.Errorf("expected pending batch mode, got %v", payload["mode"])
		}
		if payload["locale"] != "es" {
			t.Errorf("expected document language first, got %v", payload["locale"])
		}
		// es is also the target locale, so nothing remains after it.
		if remaining := stringSlice(payload["remaining"]); len(remaining) != 0 {
			t.Errorf("expected no remaining locales, got %v", remaining)
		}
	})

	t.Run("re-extraction clears the previous pending set", func(t *testing.T) {
		job := env.runJob(t, TypeEntityExtraction,
			map[string]any{"resourceId": r.ID, "from": "workingContent"},
			map[string]any{"entities": []map[string]any{
				{"word": "Toledo", "entity": "GPE"},
			}})
		if job.Status != store.JobStatusCompleted {
			t.Fatalf("expected completed, got %s (%s)", job.Status, job.Error)
		}
		pending, _ := env.store.ListPendingByResource(r.ID, true)
		if len(pending) != 1 || pending[0].Name != "Toledo" {
			t.Errorf("expected only Toledo after re-extraction, got %d", len(pending))
		}
	})
}

func TestTranslateProcessor_EntityModes(t *testing.T) {
	t.Run("pending batch merges translations and chains locales", func(t *testing.T) {
		env := newTestEnv(t)
		r := env.makeResource(t, "h-batch")
		svc := entities.NewService(env.store, slog.Default())
		svc.CreatePending(r.ID, "Madrid", "GPE", "fr")

		job := env.runJob(t, TypeTranslate,
			map[string]any{
				"resourceId": r.ID,
				"mode":       ModeEntitiesPendingBatch,
				"locale":     "fr",
				"remaining":  []string{"es"},
				"names":      []string{"Madrid"},
			},
			map[string]any{"translations": []map[string]any{
				{"name": "Madrid", "translation": "Madrid-fr"},
			}})
		if job.Status != store.JobStatusCompleted {
			t.Fatalf("expected completed, got %s (%s)", job.Status, job.Error)
		}

		p, _ := env.store.FindPendingByName(r.ID, "Madrid")
		if p.Translations.Data()["fr"] != "Madrid-fr" {
			t.Errorf("expected fr translation merged, got %v", p.Translations.Data())
		}

		next := env.pendingJobs(t, TypeTranslate)
		if len(next) != 1 {
			t.Fatalf("expected chained job for es, got %d", len(next))
		}
		payload, _ := next[0].PayloadMap()
		if payload["locale"] != "es" {
			t.Errorf("expected es next, got %v", payload["locale"])
		}
		if remaining := stringSlice(payload["remaining"]); len(remaining) != 0 {
			t.Errorf("expected empty remaining, got %v", remaining)
		}
	})

	t.Run("last locale does not chain", func(t *testing.T) {
		env := newTestEnv(t)
		r := env.makeResource(t, "h-last")

		job := env.runJob(t, TypeTranslate,
			map[string]any{
				"resourceId": r.ID,
				"mode":       ModeEntitiesPendingBatch,
				"locale":     "es",
				"remaining":  []string{},
			},
			map[string]any{"translations": []map[string]any{
				{"name": "Lisboa", "translation": "Lisboa-es"},
			}})
		if job.Status != store.JobStatusCompleted {
			t.Fatalf("expected completed, got %s (%s)", job.Status, job.Error)
		}
		if len(env.pendingJobs(t, TypeTranslate)) != 0 {
			t.Error("expected no chained job after the last locale")
		}

		// Translation for an unextracted name creates the pending entity.
		p, err := env.store.FindPendingByName(r.ID, "Lisboa")
		if err != nil {
			t.Fatalf("expected pending entity created: %v", err)
		}
		if p.Scope != store.ScopeDocument {
			t.Errorf("expected document scope, got %s", p.Scope)
		}
	})

	t.Run("entities batch updates confirmed entities by name", func(t *testing.T) {
		env := newTestEnv(t)
		svc := entities.NewService(env.store, slog.Default())
		e, _ := svc.FindOrCreate("Madrid", "GEOPOLITICAL", nil)

		job := env.runJob(t, TypeTranslate,
			map[string]any{"mode": ModeEntitiesBatch, "locale": "es"},
			map[string]any{"translations": []map[string]any{
				{"name": "Madrid", "translation": "Madrid"},
				{"name": "Nowhere", "translation": "Ninguna"}, // hole, logged
			}})
		if job.Status != store.JobStatusCompleted {
			t.Fatalf("expected completed, got %s (%s)", job.Status, job.Error)
		}

		got, _ := env.store.GetEntity(e.ID)
		if got.Translations.Data()["es"] != "Madrid" {
			t.Errorf("expected translation stored, got %v", got.Translations.Data())
		}
	})

	t.Run("single entity mode", func(t *testing.T) {
		env := newTestEnv(t)
		svc := entities.NewService(env.store, slog.Default())
		e, _ := svc.FindOrCreate("Cervantes", "PERSON", nil)

		job := env.runJob(t, TypeTranslate,
			map[string]any{"mode": ModeEntity, "entityId": e.ID, "locale": "fr"},
			map[string]any{"translations": []map[string]any{
				{"name": "Cervantes", "translation": "Cervantès"},
			}})
		if job.Status != store.JobStatusCompleted {
			t.Fatalf("expected completed, got %s (%s)", job.Status, job.Error)
		}
		got, _ := env.store.GetEntity(e.ID)
		if got.Translations.Data()["fr"] != "Cervantès" {
			t.Errorf("expected fr translation, got %v", got.Translations.Data())
		}
	})
}

func TestGenerationProcessors(t *testing.T) {
	t.Run("ingest-content feeds the generator", func(t *testing.T) {
		env := newTestEnv(t)
		r := env.makeResource(t, "h-ingest")
		env.store.UpdateResourceFields(r.ID, map[string]any{"working_content": "<p>English text</p>"})

		job := env.runJob(t, TypeIngestContent, map[string]any{"resourceId": r.ID}, map[string]any{"ok": true})
		if job.Status != store.JobStatusCompleted {
			t.Fatalf("expected completed, got %s (%s)", job.Status, job.Error)
		}
		if env.generator.Ingested[r.ID] != "<p>English text</p>" {
			t.Errorf("expected content ingested, got %q", env.generator.Ingested[r.ID])
		}
	})

	t.Run("ingest-content without content fails", func(t *testing.T) {
		env := newTestEnv(t)
		r := env.makeResource(t, "h-empty")
		job := env.runJob(t, TypeIngestContent, map[string]any{"resourceId": r.ID}, map[string]any{"ok": true})
		if job.Status != store.JobStatusFailed {
			t.Errorf("expected failed, got %s", job.Status)
		}
	})

	t.Run("summarize stores the summary", func(t *testing.T) {
		env := newTestEnv(t)
		r := env.makeResource(t, "h-summary")
		job := env.runJob(t, TypeSummarize,
			map[string]any{"resourceId": r.ID},
			map[string]any{"response": "A story about windmills."})
		if job.Status != store.JobStatusCompleted {
			t.Fatalf("expected completed, got %s (%s)", job.Status, job.Error)
		}
		got, _ := env.store.GetResource(r.ID)
		if got.Summary != "A story about windmills." {
			t.Errorf("expected summary stored, got %q", got.Summary)
		}
	})

	t.Run("key points and keywords store lists", func(t *testing.T) {
		env := newTestEnv(t)
		r := env.makeResource(t, "h-lists")

		job := env.runJob(t, TypeKeyPoint,
			map[string]any{"resourceId": r.ID},
			map[string]any{"key_points": []string{"one", "two"}})
		if job.Status != store.JobStatusCompleted {
			t.Fatalf("expected completed, got %s (%s)", job.Status, job.Error)
		}
		job = env.runJob(t, TypeKeywords,
			map[string]any{"resourceId": r.ID},
			map[string]any{"keywords": []string{"quijote"}})
		if job.Status != store.JobStatusCompleted {
			t.Fatalf("expected completed, got %s (%s)", job.Status, job.Error)
		}

		got, _ := env.store.GetResource(r.ID)
		if len(got.KeyPoints) != 2 || len(got.Keywords) != 1 {
			t.Errorf("expected lists stored, got %v / %v", got.KeyPoints, got.Keywords)
		}
	})

	t.Run("ask broadcasts the answer", func(t *testing.T) {
		env := newTestEnv(t)
		r := env.makeResource(t, "h-ask")
		job := env.runJob(t, TypeAsk,
			map[string]any{"resourceId": r.ID, "question": "who?"},
			map[string]any{"response": "Cervantes"})
		if job.Status != store.JobStatusCompleted {
			t.Fatalf("expected completed, got %s (%s)", job.Status, job.Error)
		}
		if len(env.notifier.asks) != 1 || !strings.Contains(env.notifier.asks[0], "Cervantes") {
			t.Errorf("expected ask response broadcast, got %v", env.notifier.asks)
		}
	})
}

// TestSpanishDocumentFlow walks a Spanish upload through the whole
// pipeline: detection, English normalization, entity extraction, and
// entity translation.
func TestSpanishDocumentFlow(t *testing.T) {
	env := newTestEnv(t)
	r := env.makeResource(t, "h-flow")

	// Stage 1: extraction.
	job := env.runJob(t, TypeDocumentExtraction,
		map[string]any{"resourceId": r.ID, "hash": r.Hash, "extension": "pdf"},
		map[string]any{
			"title":   "Crónica",
			"content": "<html><body><div><p>Madrid es la capital</p></div></body></html>",
			"pages":   12,
		})
	if job.Status != store.JobStatusCompleted {
		t.Fatalf("extraction: %s (%s)", job.Status, job.Error)
	}

	// Stage 2: language detection agrees on es twice.
	detect := env.pendingJobs(t, TypeDetectLanguage)
	if len(detect) != 1 {
		t.Fatalf("expected detect-language job, got %d", len(detect))
	}
	env.store.AttachJobResult(detect[0].ID, map[string]any{"languages": []string{"es", "es"}}, store.JobStatusProcessed)
	env.dispatcher.Tick(context.Background())

	got, _ := env.store.GetResource(r.ID)
	if got.Language != "es" {
		t.Fatalf("expected es language, got %s", got.Language)
	}

	// Stage 3: the es->en normalization translate job exists.
	var norm *store.Job
	for _, j := range env.pendingJobs(t, TypeTranslate) {
		payload, _ := j.PayloadMap()
		if payload["saveTo"] == "workingContent" {
			jc := j
			norm = &jc
			if payload["source"] != "es" || payload["target"] != "en" {
				t.Errorf("expected es->en job, got %v", payload)
			}
		}
	}
	if norm == nil {
		t.Fatal("expected es->en translate job with saveTo workingContent")
	}

	env.store.AttachJobResult(norm.ID, map[string]any{"response": []map[string]any{
		{"path": "body > div > p", "original_text": "Madrid es la capital", "translation_text": "Madrid is the capital"},
	}}, store.JobStatusProcessed)
	env.dispatcher.Tick(context.Background())

	got, _ = env.store.GetResource(r.ID)
	if !strings.Contains(got.WorkingContent, "Madrid is the capital") {
		t.Fatalf("expected English working content, got %q", got.WorkingContent)
	}

	// Stage 4: entity extraction against the working content.
	extraction := env.pendingJobs(t, TypeEntityExtraction)
	if len(extraction) != 1 {
		t.Fatalf("expected entity-extraction job, got %d", len(extraction))
	}
	payload, _ := extraction[0].PayloadMap()
	if payload["from"] != "workingContent" {
		t.Errorf("expected extraction from workingContent, got %v", payload["from"])
	}
	env.store.AttachJobResult(extraction[0].ID, map[string]any{"entities": []map[string]any{
		{"word": "Madrid", "entity": "GPE"},
	}}, store.JobStatusProcessed)
	env.dispatcher.Tick(context.Background())

	pending, _ := env.store.ListPendingByResource(r.ID, true)
	if len(pending) != 1 || pending[0].Scope != store.ScopeDocument {
		t.Fatalf("expected one document-scoped pending entity, got %d", len(pending))
	}

	// Stage 5: the es entity translation batch adds translations.
	var batchJob *store.Job
	for _, j := range env.pendingJobs(t, TypeTranslate) {
		p, _ := j.PayloadMap()
		if p["mode"] == ModeEntitiesPendingBatch {
			jc := j
			batchJob = &jc
			if p["locale"] != "es" {
				t.Errorf("expected es locale, got %v", p["locale"])
			}
		}
	}
	if batchJob == nil {
		t.Fatal("expected entities-pending-batch translate job")
	}
	env.store.AttachJobResult(batchJob.ID, map[string]any{"translations": []map[string]any{
		{"name": "Madrid", "translation": "Madrid"},
	}}, store.JobStatusProcessed)
	env.dispatcher.Tick(context.Background())

	p, _ := env.store.FindPendingByName(r.ID, "Madrid")
	if p.Translations.Data()["es"] != "Madrid" {
		t.Errorf("expected es translation on pending entity, got %v", p.Translations.Data())
	}
}
