// Package entities implements entity resolution: promoting extracted
// pending entities to confirmed ones, merging duplicates, and undoing
// merges. It owns the mapping from NER tags to the internal type
// vocabulary.
package entities

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/corpus-kb/corpus/internal/htmldoc"
	"github.com/corpus-kb/corpus/internal/store"
	"gorm.io/datatypes"
)

// nerTypeMap translates the NER service's tag vocabulary to the
// internal EntityType names. Processors consume this table by
// reference; there is exactly one copy.
var nerTypeMap = map[string]string{
	"GPE":         "GEOPOLITICAL",
	"LOC":         "LOCATION",
	"NORP":        "NATIONALITY",
	"ORG":         "ORGANIZATION",
	"FAC":         "FACILITY",
	"PERSON":      "PERSON",
	"EVENT":       "EVENT",
	"PRODUCT":     "PRODUCT",
	"WORK_OF_ART": "WORK_OF_ART",
	"LANGUAGE":    "LANGUAGE",
	"LAW":         "LAW",
}

// MapNERTag resolves an external NER tag to an internal EntityType
// name, falling back to MISC for anything unknown.
func MapNERTag(tag string) string {
	if name, ok := nerTypeMap[tag]; ok {
		return name
	}
	return "MISC"
}

// Service is the entity resolution and merge engine.
type Service struct {
	store  *store.Store
	logger *slog.Logger
}

// NewService creates the resolution engine over a store.
func NewService(s *store.Store, logger *slog.Logger) *Service {
	return &Service{store: s, logger: logger}
}

// FindOrCreate looks up the confirmed entity with the given name and
// type, creating it with the seed aliases when absent. This is the
// sole entity-creation path. It is not transactionally exclusive:
// concurrent callers can race to create duplicates, which are cleaned
// up later by Merge.
func (s *Service) FindOrCreate(name, entityTypeName string, aliases []store.Alias) (*store.Entity, error) {
	et, err := s.store.EntityTypeByName(entityTypeName)
	if err != nil {
		return nil, fmt.Errorf("unknown entity type %q: %w", entityTypeName, err)
	}

	existing, err := s.store.FindEntityByNameAndType(name, et.ID)
	if err == nil {
		return existing, nil
	}
	if err != store.ErrNotFound {
		return nil, err
	}

	entity := &store.Entity{
		Name:         name,
		EntityTypeID: et.ID,
		Aliases:      aliases,
	}
	if err := s.store.CreateEntity(entity); err != nil {
		return nil, err
	}
	entity.EntityType = et

	s.logger.Debug("entity created", "name", name, "type", entityTypeName)
	return entity, nil
}

// ConfirmResult reports the outcome of a batch confirmation.
type ConfirmResult struct {
	Confirmed int      `json:"confirmed"`
	Errors    []string `json:"errors"`
}

// ConfirmEntities promotes every active pending entity of a resource
// to a confirmed Entity, links it, and deletes the pending record.
// Individual failures are collected, not fatal to the batch.
func (s *Service) ConfirmEntities(resourceID string) (ConfirmResult, error) {
	pending, err := s.store.ListPendingByResource(resourceID, true)
	if err != nil {
		return ConfirmResult{}, err
	}

	result := ConfirmResult{Errors: []string{}}
	for _, p := range pending {
		if err := s.confirmOne(resourceID, &p); err != nil {
			s.logger.Warn("failed to confirm pending entity", "name", p.Name, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", p.Name, err))
			continue
		}
		result.Confirmed++
	}
	return result, nil
}

func (s *Service) confirmOne(resourceID string, p *store.PendingEntity) error {
	if p.EntityType == nil {
		return fmt.Errorf("pending entity has no type")
	}

	aliases := make([]store.Alias, 0, len(p.Aliases))
	for _, a := range p.Aliases {
		aliases = append(aliases, store.Alias{Locale: a.Locale, Value: a.Value})
	}

	entity, err := s.FindOrCreate(p.Name, p.EntityType.Name, aliases)
	if err != nil {
		return err
	}

	// Carry the pending translations onto a freshly created entity.
	if tr := p.Translations.Data(); len(tr) > 0 && len(entity.Translations.Data()) == 0 {
		if err := s.store.UpdateEntityTranslations(entity.ID, tr); err != nil {
			return err
		}
	}

	if err := s.store.LinkResourceEntity(resourceID, entity.ID); err != nil {
		return err
	}
	return s.store.DeletePendingEntity(p.ID)
}

// MergeEntity folds a pending entity into a target (pending or
// confirmed). The target gains an alias for the source's name; the
// source row is retained, marked merged, never deleted — the merge is
// inspectable and reversible. Document-scoped merges additionally
// substitute the source name for the target name inside the resource's
// working content.
func (s *Service) MergeEntity(sourceID string, targetType store.MergeTargetType, targetID string, aliasScope store.AliasScope) error {
	source, err := s.store.GetPendingEntity(sourceID)
	if err != nil {
		return fmt.Errorf("merge source: %w", err)
	}
	if _, merged := source.MergedInto(); merged {
		return fmt.Errorf("pending entity %s is already merged", sourceID)
	}

	var targetName string
	switch targetType {
	case store.MergeTargetPending:
		target, err := s.store.GetPendingEntity(targetID)
		if err != nil {
			return fmt.Errorf("merge target: %w", err)
		}
		target.Aliases = append(target.Aliases, store.PendingAlias{
			Locale: "en",
			Value:  source.Name,
			Scope:  aliasScope,
		})
		if err := s.store.SavePendingEntity(target); err != nil {
			return err
		}
		targetName = target.Name

	case store.MergeTargetConfirmed:
		target, err := s.store.GetEntity(targetID)
		if err != nil {
			return fmt.Errorf("merge target: %w", err)
		}
		target.Aliases = append(target.Aliases, store.Alias{
			Locale: "en",
			Value:  source.Name,
		})
		if err := s.store.SaveEntity(target); err != nil {
			return err
		}
		targetName = target.Name

	default:
		return fmt.Errorf("unknown merge target type: %s", targetType)
	}

	source.Scope = aliasScope
	source.SetMerged(store.MergeTarget{Type: targetType, ID: targetID, At: time.Now()})
	if err := s.store.SavePendingEntity(source); err != nil {
		return err
	}

	if aliasScope == store.ScopeDocument {
		if err := s.substituteWorkingContent(source.ResourceID, source.Name, targetName); err != nil {
			return err
		}
	}

	s.logger.Info("pending entity merged", "source", source.Name, "target", targetName, "scope", aliasScope)
	return nil
}

// substituteWorkingContent rewrites whole-word occurrences of oldName
// in the resource's working content. Regex-based, does not parse
// markup; it can mismatch inside attribute text.
func (s *Service) substituteWorkingContent(resourceID, oldName, newName string) error {
	resource, err := s.store.GetResource(resourceID)
	if err != nil {
		return fmt.Errorf("merge resource: %w", err)
	}
	if resource.WorkingContent == "" {
		return nil
	}
	updated := htmldoc.ReplaceWholeWord(resource.WorkingContent, oldName, newName)
	if updated == resource.WorkingContent {
		return nil
	}
	return s.store.UpdateResourceFields(resourceID, map[string]any{
		"working_content": updated,
	})
}

// CancelMerge reverses MergeEntity: removes the alias the merge added
// from the target and resets the source's merge state. The working
// content substitution from a document-scoped merge is not reverted.
func (s *Service) CancelMerge(sourceID string) error {
	source, err := s.store.GetPendingEntity(sourceID)
	if err != nil {
		return fmt.Errorf("merge source: %w", err)
	}
	target, merged := source.MergedInto()
	if !merged {
		return fmt.Errorf("pending entity %s is not merged", sourceID)
	}

	switch target.Type {
	case store.MergeTargetPending:
		tp, err := s.store.GetPendingEntity(target.ID)
		if err == nil {
			tp.Aliases = removePendingAlias(tp.Aliases, source.Name, source.Scope)
			if err := s.store.SavePendingEntity(tp); err != nil {
				return err
			}
		} else if err != store.ErrNotFound {
			return err
		}

	case store.MergeTargetConfirmed:
		te, err := s.store.GetEntity(target.ID)
		if err == nil {
			te.Aliases = removeAlias(te.Aliases, source.Name)
			if err := s.store.SaveEntity(te); err != nil {
				return err
			}
		} else if err != store.ErrNotFound {
			return err
		}
	}

	source.ClearMerged()
	if err := s.store.SavePendingEntity(source); err != nil {
		return err
	}

	s.logger.Info("merge canceled", "source", source.Name, "target", target.ID)
	return nil
}

// removePendingAlias drops the first alias matching both value and
// scope.
func removePendingAlias(aliases []store.PendingAlias, value string, scope store.AliasScope) []store.PendingAlias {
	for i, a := range aliases {
		if a.Value == value && a.Scope == scope {
			return append(aliases[:i], aliases[i+1:]...)
		}
	}
	return aliases
}

// removeAlias drops the first alias matching the value.
func removeAlias(aliases []store.Alias, value string) []store.Alias {
	for i, a := range aliases {
		if a.Value == value {
			return append(aliases[:i], aliases[i+1:]...)
		}
	}
	return aliases
}

// Merge folds one confirmed entity into another: aliases are unioned
// (both names included, de-duplicated by locale:value), translations
// are unioned with the target winning conflicts and every translation
// value materialized as an alias, resource associations are re-pointed
// idempotently, and the source entity is deleted.
func (s *Service) Merge(sourceID, targetID string) (*store.Entity, error) {
	if sourceID == targetID {
		return nil, fmt.Errorf("cannot merge an entity into itself")
	}
	source, err := s.store.GetEntity(sourceID)
	if err != nil {
		return nil, fmt.Errorf("merge source: %w", err)
	}
	target, err := s.store.GetEntity(targetID)
	if err != nil {
		return nil, fmt.Errorf("merge target: %w", err)
	}

	seen := make(map[string]struct{})
	var merged []store.Alias
	add := func(a store.Alias) {
		key := a.Locale + ":" + a.Value
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		merged = append(merged, a)
	}
	for _, a := range target.Aliases {
		add(a)
	}
	for _, a := range source.Aliases {
		add(a)
	}
	add(store.Alias{Locale: "en", Value: target.Name})
	add(store.Alias{Locale: "en", Value: source.Name})

	translations := make(map[string]string)
	for locale, value := range source.Translations.Data() {
		translations[locale] = value
	}
	for locale, value := range target.Translations.Data() {
		translations[locale] = value // target wins
	}
	for locale, value := range translations {
		add(store.Alias{Locale: locale, Value: value})
	}

	target.Aliases = merged
	target.Translations = datatypes.NewJSONType(translations)
	if err := s.store.SaveEntity(target); err != nil {
		return nil, err
	}

	if err := s.store.RepointResourceEntities(sourceID, targetID); err != nil {
		return nil, err
	}
	if err := s.store.DeleteEntity(sourceID); err != nil {
		return nil, err
	}

	s.logger.Info("entities merged", "source", source.Name, "target", target.Name)
	return target, nil
}

// Search matches confirmed entities by name, alias value, or
// translation value.
func (s *Service) Search(query string) ([]store.Entity, error) {
	return s.store.SearchEntities(query)
}

// CreatePending records one extracted entity for review, resolving the
// NER tag through the shared type map.
func (s *Service) CreatePending(resourceID, name, nerTag, language string) (*store.PendingEntity, error) {
	et, err := s.store.EntityTypeByName(MapNERTag(nerTag))
	if err != nil {
		return nil, fmt.Errorf("entity type for tag %q: %w", nerTag, err)
	}

	p := &store.PendingEntity{
		ResourceID:   resourceID,
		Name:         name,
		Language:     language,
		EntityTypeID: &et.ID,
		Scope:        store.ScopeDocument,
	}
	if err := s.store.CreatePendingEntity(p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpsertPendingTranslation merges one locale's translation into the
// resource's pending entity of that name, creating the pending entity
// when extraction has not produced one.
func (s *Service) UpsertPendingTranslation(resourceID, name, locale, translation string) error {
	p, err := s.store.FindPendingByName(resourceID, name)
	if err == store.ErrNotFound {
		p = &store.PendingEntity{
			ResourceID:   resourceID,
			Name:         name,
			Scope:        store.ScopeDocument,
			Translations: datatypes.NewJSONType(map[string]string{locale: translation}),
		}
		return s.store.CreatePendingEntity(p)
	}
	if err != nil {
		return err
	}

	tr := p.Translations.Data()
	if tr == nil {
		tr = make(map[string]string)
	}
	tr[locale] = translation
	p.Translations = datatypes.NewJSONType(tr)
	return s.store.SavePendingEntity(p)
}

// UpsertEntityTranslation merges one locale's translation into a
// confirmed entity's translation map via a targeted column update.
func (s *Service) UpsertEntityTranslation(entityID, locale, translation string) error {
	entity, err := s.store.GetEntity(entityID)
	if err != nil {
		return err
	}
	tr := entity.Translations.Data()
	if tr == nil {
		tr = make(map[string]string)
	}
	tr[locale] = translation
	return s.store.UpdateEntityTranslations(entityID, tr)
}

// ClearPending removes a resource's active pending entities ahead of
// re-extraction.
func (s *Service) ClearPending(resourceID string) error {
	return s.store.ClearActivePending(resourceID)
}
