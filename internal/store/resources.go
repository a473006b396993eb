package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// CreateResource inserts a new resource.
func (s *Store) CreateResource(r *Resource) error {
	if err := s.db.Create(r).Error; err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}
	return nil
}

// GetResource fetches a resource by ID.
func (s *Store) GetResource(id string) (*Resource, error) {
	var r Resource
	if err := s.db.First(&r, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	return &r, nil
}

// GetResourceByHash fetches a resource by content hash. Used for
// upload deduplication.
func (s *Store) GetResourceByHash(hash string) (*Resource, error) {
	var r Resource
	if err := s.db.First(&r, "hash = ?", hash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get resource by hash: %w", err)
	}
	return &r, nil
}

// ListResources returns all resources, newest first.
func (s *Store) ListResources() ([]Resource, error) {
	var resources []Resource
	if err := s.db.Order("created_at DESC").Find(&resources).Error; err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	return resources, nil
}

// UpdateResourceFields applies a targeted column update without
// loading or touching the rest of the row. Keys are model column
// names in snake_case.
func (s *Store) UpdateResourceFields(id string, fields map[string]any) error {
	res := s.db.Model(&Resource{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update resource: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteResource removes a resource. Pending entities cascade with it;
// entity links are removed explicitly for drivers without FK support.
func (s *Store) DeleteResource(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&PendingEntity{}, "resource_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete pending entities: %w", err)
		}
		if err := tx.Delete(&ResourceEntity{}, "resource_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete entity links: %w", err)
		}
		res := tx.Delete(&Resource{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete resource: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
