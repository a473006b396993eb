package store

import (
	"log/slog"
	"testing"
	"time"

	"gorm.io/datatypes"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite", ":memory:", slog.Default())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_SeedsEntityTypes(t *testing.T) {
	s := newTestStore(t)

	types, err := s.ListEntityTypes()
	if err != nil {
		t.Fatalf("ListEntityTypes: %v", err)
	}
	if len(types) != 12 {
		t.Fatalf("expected 12 seeded entity types, got %d", len(types))
	}

	t.Run("seeding is idempotent", func(t *testing.T) {
		if err := s.seed(); err != nil {
			t.Fatalf("seed: %v", err)
		}
		types, err := s.ListEntityTypes()
		if err != nil {
			t.Fatal(err)
		}
		if len(types) != 12 {
			t.Errorf("expected 12 entity types after reseed, got %d", len(types))
		}
	})

	t.Run("vocabulary includes GEOPOLITICAL", func(t *testing.T) {
		if _, err := s.EntityTypeByName("GEOPOLITICAL"); err != nil {
			t.Errorf("expected GEOPOLITICAL in vocabulary: %v", err)
		}
	})
}

func TestStore_Jobs(t *testing.T) {
	s := newTestStore(t)

	t.Run("create applies defaults", func(t *testing.T) {
		job, err := s.CreateJob("document-extraction", "", map[string]any{"resourceId": "r1"})
		if err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
		if job.ID == "" {
			t.Error("expected generated ID")
		}
		if job.Status != JobStatusPending {
			t.Errorf("expected pending status, got %s", job.Status)
		}
		if job.Priority != PriorityNormal {
			t.Errorf("expected normal priority, got %s", job.Priority)
		}
	})

	t.Run("payload round-trips", func(t *testing.T) {
		job, err := s.CreateJob("detect-language", PriorityNormal, map[string]any{
			"resourceId": "r2",
			"samples":    []any{"one", "two"},
		})
		if err != nil {
			t.Fatal(err)
		}
		got, err := job.PayloadMap()
		if err != nil {
			t.Fatalf("PayloadMap: %v", err)
		}
		if got["resourceId"] != "r2" {
			t.Errorf("expected resourceId r2, got %v", got["resourceId"])
		}
	})

	t.Run("oldest processed wins", func(t *testing.T) {
		first, _ := s.CreateJob("summarize", PriorityLow, nil)
		second, _ := s.CreateJob("summarize", PriorityHigh, nil)

		// Force distinct created_at ordering
		s.db.Model(&Job{}).Where("id = ?", first.ID).
			Update("created_at", time.Now().Add(-time.Minute))

		for _, id := range []string{first.ID, second.ID} {
			if _, err := s.AttachJobResult(id, map[string]any{"response": "ok"}, JobStatusProcessed); err != nil {
				t.Fatalf("AttachJobResult: %v", err)
			}
		}

		job, err := s.OldestProcessed()
		if err != nil {
			t.Fatalf("OldestProcessed: %v", err)
		}
		if job.ID != first.ID {
			t.Errorf("expected oldest job %s, got %s (priority must not affect dispatch order)", first.ID, job.ID)
		}
	})

	t.Run("terminal transition stamps expiry", func(t *testing.T) {
		job, _ := s.CreateJob("ask", PriorityNormal, nil)
		if err := s.UpdateJobStatus(job.ID, JobStatusCompleted, ""); err != nil {
			t.Fatalf("UpdateJobStatus: %v", err)
		}
		got, _ := s.GetJob(job.ID)
		if got.ExpiresAt == nil {
			t.Fatal("expected expiry stamp on completed job")
		}
		until := time.Until(*got.ExpiresAt)
		if until < 47*time.Hour || until > 49*time.Hour {
			t.Errorf("expected ~48h retention, got %s", until)
		}
	})

	t.Run("non-terminal transition leaves expiry unset", func(t *testing.T) {
		job, _ := s.CreateJob("ask", PriorityNormal, nil)
		if err := s.UpdateJobStatus(job.ID, JobStatusRunning, ""); err != nil {
			t.Fatal(err)
		}
		got, _ := s.GetJob(job.ID)
		if got.ExpiresAt != nil {
			t.Error("expected no expiry on running job")
		}
	})

	t.Run("sweep removes only expired jobs", func(t *testing.T) {
		stale, _ := s.CreateJob("key-point", PriorityNormal, nil)
		fresh, _ := s.CreateJob("key-point", PriorityNormal, nil)
		s.UpdateJobStatus(stale.ID, JobStatusFailed, "boom")
		s.UpdateJobStatus(fresh.ID, JobStatusCompleted, "")

		past := time.Now().Add(-time.Hour)
		s.db.Model(&Job{}).Where("id = ?", stale.ID).Update("expires_at", &past)

		n, err := s.SweepExpiredJobs(time.Now())
		if err != nil {
			t.Fatalf("SweepExpiredJobs: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 swept job, got %d", n)
		}
		if _, err := s.GetJob(stale.ID); err != ErrNotFound {
			t.Errorf("expected stale job gone, got %v", err)
		}
		if _, err := s.GetJob(fresh.ID); err != nil {
			t.Errorf("expected fresh job kept: %v", err)
		}
	})

	t.Run("pending listing orders by priority then age", func(t *testing.T) {
		low, _ := s.CreateJob("translate", PriorityLow, nil)
		high, _ := s.CreateJob("translate", PriorityHigh, nil)
		_ = low

		jobs, err := s.ListJobs(JobFilter{Status: JobStatusPending, Type: "translate"})
		if err != nil {
			t.Fatal(err)
		}
		if len(jobs) != 2 {
			t.Fatalf("expected 2 pending translate jobs, got %d", len(jobs))
		}
		if jobs[0].ID != high.ID {
			t.Errorf("expected high priority job first, got %s", jobs[0].Priority)
		}
	})
}

func TestStore_Resources(t *testing.T) {
	s := newTestStore(t)

	res := &Resource{
		Name:               "paper.pdf",
		Hash:               "ab12cd34",
		Type:               "pdf",
		OriginalName:       "paper.pdf",
		UploadDate:         time.Now(),
		ConfirmationStatus: ConfirmationPending,
	}
	if err := s.CreateResource(res); err != nil {
		t.Fatalf("CreateResource: %v", err)
	}

	t.Run("lookup by hash", func(t *testing.T) {
		got, err := s.GetResourceByHash("ab12cd34")
		if err != nil {
			t.Fatalf("GetResourceByHash: %v", err)
		}
		if got.ID != res.ID {
			t.Errorf("expected resource %s, got %s", res.ID, got.ID)
		}
	})

	t.Run("unknown hash is ErrNotFound", func(t *testing.T) {
		if _, err := s.GetResourceByHash("nope"); err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("targeted field update leaves siblings intact", func(t *testing.T) {
		err := s.UpdateResourceFields(res.ID, map[string]any{
			"language": "es",
			"summary":  "a summary",
		})
		if err != nil {
			t.Fatalf("UpdateResourceFields: %v", err)
		}
		got, _ := s.GetResource(res.ID)
		if got.Language != "es" || got.Summary != "a summary" {
			t.Errorf("expected updated fields, got language=%s summary=%s", got.Language, got.Summary)
		}
		if got.Hash != "ab12cd34" {
			t.Errorf("expected hash untouched, got %s", got.Hash)
		}
	})

	t.Run("delete cascades pending entities and links", func(t *testing.T) {
		pending := &PendingEntity{ResourceID: res.ID, Name: "Madrid"}
		if err := s.CreatePendingEntity(pending); err != nil {
			t.Fatal(err)
		}
		if err := s.DeleteResource(res.ID); err != nil {
			t.Fatalf("DeleteResource: %v", err)
		}
		if _, err := s.GetPendingEntity(pending.ID); err != ErrNotFound {
			t.Errorf("expected pending entity gone, got %v", err)
		}
	})
}

func TestStore_PendingMergeState(t *testing.T) {
	s := newTestStore(t)

	res := &Resource{Name: "doc", Hash: "h1", UploadDate: time.Now()}
	s.CreateResource(res)

	p := &PendingEntity{ResourceID: res.ID, Name: "NYC", Language: "en"}
	if err := s.CreatePendingEntity(p); err != nil {
		t.Fatal(err)
	}

	t.Run("fresh pending entity is not merged", func(t *testing.T) {
		if _, ok := p.MergedInto(); ok {
			t.Error("expected no merge target on fresh pending entity")
		}
		if p.Status != PendingActive {
			t.Errorf("expected pending status, got %s", p.Status)
		}
	})

	t.Run("set merged writes all three columns", func(t *testing.T) {
		at := time.Now()
		p.SetMerged(MergeTarget{Type: MergeTargetConfirmed, ID: "target-1", At: at})
		if err := s.SavePendingEntity(p); err != nil {
			t.Fatal(err)
		}

		got, _ := s.GetPendingEntity(p.ID)
		target, ok := got.MergedInto()
		if !ok {
			t.Fatal("expected merge target after SetMerged")
		}
		if target.Type != MergeTargetConfirmed || target.ID != "target-1" {
			t.Errorf("unexpected merge target: %+v", target)
		}
		if got.Status != PendingMerged {
			t.Errorf("expected merged status, got %s", got.Status)
		}
	})

	t.Run("clear merged resets everything", func(t *testing.T) {
		p.ClearMerged()
		if err := s.SavePendingEntity(p); err != nil {
			t.Fatal(err)
		}
		got, _ := s.GetPendingEntity(p.ID)
		if _, ok := got.MergedInto(); ok {
			t.Error("expected no merge target after ClearMerged")
		}
		if got.Status != PendingActive {
			t.Errorf("expected pending status, got %s", got.Status)
		}
		if got.MergedTargetType != nil || got.MergedTargetID != nil || got.MergedAt != nil {
			t.Error("expected all merge columns nil after ClearMerged")
		}
	})

	t.Run("clear active pending keeps merged records", func(t *testing.T) {
		active := &PendingEntity{ResourceID: res.ID, Name: "Boston"}
		s.CreatePendingEntity(active)

		p.SetMerged(MergeTarget{Type: MergeTargetPending, ID: "x", At: time.Now()})
		s.SavePendingEntity(p)

		if err := s.ClearActivePending(res.ID); err != nil {
			t.Fatal(err)
		}
		if _, err := s.GetPendingEntity(active.ID); err != ErrNotFound {
			t.Errorf("expected active pending cleared, got %v", err)
		}
		if _, err := s.GetPendingEntity(p.ID); err != nil {
			t.Errorf("expected merged pending retained: %v", err)
		}
	})
}

func TestStore_ResourceEntityLinks(t *testing.T) {
	s := newTestStore(t)

	r1 := &Resource{Name: "a", Hash: "h-a", UploadDate: time.Now()}
	r2 := &Resource{Name: "b", Hash: "h-b", UploadDate: time.Now()}
	s.CreateResource(r1)
	s.CreateResource(r2)

	et, _ := s.EntityTypeByName("PERSON")
	src := &Entity{Name: "Cervantes", EntityTypeID: et.ID}
	dst := &Entity{Name: "Miguel de Cervantes", EntityTypeID: et.ID}
	s.CreateEntity(src)
	s.CreateEntity(dst)

	t.Run("linking twice is a no-op", func(t *testing.T) {
		if err := s.LinkResourceEntity(r1.ID, src.ID); err != nil {
			t.Fatal(err)
		}
		if err := s.LinkResourceEntity(r1.ID, src.ID); err != nil {
			t.Fatalf("second link failed: %v", err)
		}
		entities, _ := s.EntitiesForResource(r1.ID)
		if len(entities) != 1 {
			t.Errorf("expected 1 linked entity, got %d", len(entities))
		}
	})

	t.Run("repoint moves links idempotently", func(t *testing.T) {
		s.LinkResourceEntity(r2.ID, src.ID)
		// r1 already links both source and destination
		s.LinkResourceEntity(r1.ID, dst.ID)

		if err := s.RepointResourceEntities(src.ID, dst.ID); err != nil {
			t.Fatalf("RepointResourceEntities: %v", err)
		}

		for _, r := range []*Resource{r1, r2} {
			entities, _ := s.EntitiesForResource(r.ID)
			if len(entities) != 1 || entities[0].ID != dst.ID {
				t.Errorf("resource %s: expected single link to destination, got %d entities", r.Name, len(entities))
			}
		}
	})
}

func TestStore_SearchEntities(t *testing.T) {
	s := newTestStore(t)

	et, _ := s.EntityTypeByName("GEOPOLITICAL")
	e := &Entity{
		Name:         "New York",
		EntityTypeID: et.ID,
	}
	e.Aliases = append(e.Aliases, Alias{Locale: "en", Value: "NYC"})
	e.Translations = datatypes.NewJSONType(map[string]string{"es": "Nueva York"})
	if err := s.CreateEntity(e); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name  string
		query string
	}{
		{"by name", "New York"},
		{"by alias value", "NYC"},
		{"by translation value", "Nueva York"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.SearchEntities(tc.query)
			if err != nil {
				t.Fatalf("SearchEntities: %v", err)
			}
			if len(got) != 1 || got[0].ID != e.ID {
				t.Errorf("expected to find entity by %q, got %d results", tc.query, len(got))
			}
		})
	}

	t.Run("no match", func(t *testing.T) {
		got, err := s.SearchEntities("Atlantis")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 0 {
			t.Errorf("expected no results, got %d", len(got))
		}
	})
}
