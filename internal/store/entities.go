package store

import (
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EntityTypeByName fetches one vocabulary entry.
func (s *Store) EntityTypeByName(name string) (*EntityType, error) {
	var et EntityType
	if err := s.db.First(&et, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get entity type: %w", err)
	}
	return &et, nil
}

// ListEntityTypes returns the full vocabulary.
func (s *Store) ListEntityTypes() ([]EntityType, error) {
	var types []EntityType
	if err := s.db.Order("name ASC").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("failed to list entity types: %w", err)
	}
	return types, nil
}

// CreateEntity inserts a confirmed entity.
func (s *Store) CreateEntity(e *Entity) error {
	if err := s.db.Create(e).Error; err != nil {
		return fmt.Errorf("failed to create entity: %w", err)
	}
	return nil
}

// GetEntity fetches an entity with its type preloaded.
func (s *Store) GetEntity(id string) (*Entity, error) {
	var e Entity
	if err := s.db.Preload("EntityType").First(&e, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	return &e, nil
}

// FindEntityByNameAndType looks up an entity by its natural key.
func (s *Store) FindEntityByNameAndType(name, entityTypeID string) (*Entity, error) {
	var e Entity
	err := s.db.Preload("EntityType").
		First(&e, "name = ? AND entity_type_id = ?", name, entityTypeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find entity: %w", err)
	}
	return &e, nil
}

// FindEntityByName returns the first entity with the given name,
// regardless of type.
func (s *Store) FindEntityByName(name string) (*Entity, error) {
	var e Entity
	if err := s.db.Preload("EntityType").First(&e, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find entity: %w", err)
	}
	return &e, nil
}

// ListEntities returns all confirmed entities with types preloaded.
func (s *Store) ListEntities() ([]Entity, error) {
	var entities []Entity
	if err := s.db.Preload("EntityType").Order("name ASC").Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	return entities, nil
}

// SearchEntities matches entities whose name, alias values, or
// translation values contain the query. Alias and translation matching
// works against the serialized JSON columns, which is sufficient for
// substring search.
func (s *Store) SearchEntities(query string) ([]Entity, error) {
	like := "%" + query + "%"
	var entities []Entity
	err := s.db.Preload("EntityType").
		Where("name LIKE ? OR aliases LIKE ? OR translations LIKE ?", like, like, like).
		Order("name ASC").
		Find(&entities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search entities: %w", err)
	}
	return entities, nil
}

// SaveEntity persists all fields of an entity, leaving the preloaded
// type association alone.
func (s *Store) SaveEntity(e *Entity) error {
	if err := s.db.Omit("EntityType").Save(e).Error; err != nil {
		return fmt.Errorf("failed to save entity: %w", err)
	}
	return nil
}

// UpdateEntityTranslations overwrites just the translations column,
// leaving associations and other fields untouched.
func (s *Store) UpdateEntityTranslations(id string, translations map[string]string) error {
	res := s.db.Model(&Entity{}).Where("id = ?", id).
		Update("translations", datatypes.NewJSONType(translations))
	if res.Error != nil {
		return fmt.Errorf("failed to update entity translations: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEntity removes an entity and its resource links.
func (s *Store) DeleteEntity(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ResourceEntity{}, "entity_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete entity links: %w", err)
		}
		res := tx.Delete(&Entity{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete entity: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CreatePendingEntity inserts a pending entity.
func (s *Store) CreatePendingEntity(p *PendingEntity) error {
	if err := s.db.Create(p).Error; err != nil {
		return fmt.Errorf("failed to create pending entity: %w", err)
	}
	return nil
}

// GetPendingEntity fetches a pending entity by ID.
func (s *Store) GetPendingEntity(id string) (*PendingEntity, error) {
	var p PendingEntity
	if err := s.db.Preload("EntityType").First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get pending entity: %w", err)
	}
	return &p, nil
}

// ListPendingByResource returns a resource's pending entities,
// optionally only those still awaiting review.
func (s *Store) ListPendingByResource(resourceID string, activeOnly bool) ([]PendingEntity, error) {
	q := s.db.Preload("EntityType").Where("resource_id = ?", resourceID)
	if activeOnly {
		q = q.Where("status = ?", PendingActive)
	}
	var pending []PendingEntity
	if err := q.Order("name ASC").Find(&pending).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending entities: %w", err)
	}
	return pending, nil
}

// FindPendingByName looks up a resource's pending entity by name.
func (s *Store) FindPendingByName(resourceID, name string) (*PendingEntity, error) {
	var p PendingEntity
	err := s.db.First(&p, "resource_id = ? AND name = ?", resourceID, name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find pending entity: %w", err)
	}
	return &p, nil
}

// SavePendingEntity persists all fields of a pending entity, leaving
// preloaded associations alone.
func (s *Store) SavePendingEntity(p *PendingEntity) error {
	if err := s.db.Omit("EntityType", "Resource").Save(p).Error; err != nil {
		return fmt.Errorf("failed to save pending entity: %w", err)
	}
	return nil
}

// ClearActivePending deletes a resource's still-active pending
// entities, keeping merged and confirmed records for history.
func (s *Store) ClearActivePending(resourceID string) error {
	err := s.db.Where("resource_id = ? AND status = ?", resourceID, PendingActive).
		Delete(&PendingEntity{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear pending entities: %w", err)
	}
	return nil
}

// DeletePendingEntity removes a pending entity outright.
func (s *Store) DeletePendingEntity(id string) error {
	res := s.db.Delete(&PendingEntity{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete pending entity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// LinkResourceEntity associates a resource with a confirmed entity.
// Linking twice is a no-op.
func (s *Store) LinkResourceEntity(resourceID, entityID string) error {
	link := ResourceEntity{ResourceID: resourceID, EntityID: entityID}
	err := s.db.Where("resource_id = ? AND entity_id = ?", resourceID, entityID).
		FirstOrCreate(&link).Error
	if err != nil {
		return fmt.Errorf("failed to link resource entity: %w", err)
	}
	return nil
}

// RepointResourceEntities moves every link from one entity to another,
// skipping links the target already has.
func (s *Store) RepointResourceEntities(fromEntityID, toEntityID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var links []ResourceEntity
		if err := tx.Find(&links, "entity_id = ?", fromEntityID).Error; err != nil {
			return fmt.Errorf("failed to load entity links: %w", err)
		}
		for _, link := range links {
			target := ResourceEntity{ResourceID: link.ResourceID, EntityID: toEntityID}
			err := tx.Where("resource_id = ? AND entity_id = ?", link.ResourceID, toEntityID).
				FirstOrCreate(&target).Error
			if err != nil {
				return fmt.Errorf("failed to repoint entity link: %w", err)
			}
		}
		if err := tx.Delete(&ResourceEntity{}, "entity_id = ?", fromEntityID).Error; err != nil {
			return fmt.Errorf("failed to remove old entity links: %w", err)
		}
		return nil
	})
}

// EntitiesForResource returns the confirmed entities linked to a
// resource.
func (s *Store) EntitiesForResource(resourceID string) ([]Entity, error) {
	var entities []Entity
	err := s.db.Preload("EntityType").
		Joins("JOIN resource_entities ON resource_entities.entity_id = entities.id").
		Where("resource_entities.resource_id = ?", resourceID).
		Order("entities.name ASC").
		Find(&entities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list resource entities: %w", err)
	}
	return entities, nil
}
