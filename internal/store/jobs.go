package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// JobFilter narrows ListJobs results. Zero values match everything.
type JobFilter struct {
	Status JobStatus
	Type   string
}

// CreateJob inserts a new pending job with the given payload.
func (s *Store) CreateJob(jobType string, priority JobPriority, payload map[string]any) (*Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	job := &Job{
		Type:     jobType,
		Priority: priority,
		Status:   JobStatusPending,
		Payload:  data,
	}
	if err := s.db.Create(job).Error; err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.Debug("job created", "id", job.ID, "type", job.Type, "priority", job.Priority)
	return job, nil
}

// GetJob fetches a job by ID.
func (s *Store) GetJob(id string) (*Job, error) {
	var job Job
	if err := s.db.First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// ListJobs returns jobs matching the filter. Pending jobs are ordered
// by priority (high first) then age, so external workers can consume
// them front-to-back; everything else is ordered by age alone.
func (s *Store) ListJobs(filter JobFilter) ([]Job, error) {
	q := s.db.Model(&Job{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}

	if filter.Status == JobStatusPending {
		q = q.Order("CASE priority WHEN 'high' THEN 0 WHEN 'normal' THEN 1 ELSE 2 END").
			Order("created_at ASC")
	} else {
		q = q.Order("created_at ASC")
	}

	var jobs []Job
	if err := q.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// OldestProcessed returns the oldest job awaiting dispatch, or
// ErrNotFound when none exists.
func (s *Store) OldestProcessed() (*Job, error) {
	var job Job
	err := s.db.Where("status = ?", JobStatusProcessed).
		Order("created_at ASC").
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch oldest processed job: %w", err)
	}
	return &job, nil
}

// UpdateJobStatus transitions a job. Terminal transitions stamp the
// retention deadline so the sweep can reclaim the row later.
func (s *Store) UpdateJobStatus(id string, status JobStatus, jobErr string) error {
	updates := map[string]any{
		"status": status,
		"error":  jobErr,
	}
	if status.Terminal() {
		expires := time.Now().Add(jobExpiry)
		updates["expires_at"] = &expires
	}

	res := s.db.Model(&Job{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update job status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AttachJobResult stores a worker's result and transitions the job.
// External workers use this to hand pending work back as processed.
func (s *Store) AttachJobResult(id string, result map[string]any, status JobStatus) (*Job, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	updates := map[string]any{
		"result": data,
		"status": status,
	}
	if status.Terminal() {
		expires := time.Now().Add(jobExpiry)
		updates["expires_at"] = &expires
	}

	res := s.db.Model(&Job{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to attach job result: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	return s.GetJob(id)
}

// DeleteJob removes a job outright.
func (s *Store) DeleteJob(id string) error {
	res := s.db.Delete(&Job{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SweepExpiredJobs deletes terminal jobs whose retention deadline has
// passed and returns how many were removed.
func (s *Store) SweepExpiredJobs(now time.Time) (int64, error) {
	res := s.db.Where("expires_at IS NOT NULL AND expires_at < ?", now).Delete(&Job{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to sweep expired jobs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// PayloadMap decodes the job payload into a map.
func (j *Job) PayloadMap() (map[string]any, error) {
	if len(j.Payload) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(j.Payload, &m); err != nil {
		return nil, fmt.Errorf("failed to decode job payload: %w", err)
	}
	return m, nil
}

// ResultMap decodes the job result into a map.
func (j *Job) ResultMap() (map[string]any, error) {
	if len(j.Result) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(j.Result, &m); err != nil {
		return nil, fmt.Errorf("failed to decode job result: %w", err)
	}
	return m, nil
}
