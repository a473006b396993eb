package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobStatus tracks a job through its lifecycle.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"   // waiting for an external worker
	JobStatusRunning   JobStatus = "running"   // held by the dispatcher
	JobStatusProcessed JobStatus = "processed" // worker result attached, awaiting dispatch
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status ends the job's lifecycle.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobPriority is advisory ordering for external workers consuming
// pending jobs. The dispatcher itself always takes oldest-first.
type JobPriority string

const (
	PriorityLow    JobPriority = "low"
	PriorityNormal JobPriority = "normal"
	PriorityHigh   JobPriority = "high"
)

// jobExpiry is how long terminal jobs are retained before the sweep
// deletes them.
const jobExpiry = 48 * time.Hour

// Job is a unit of pipeline work. External workers pick up pending
// jobs, attach a result, and flip the status to processed; the
// dispatcher then runs the matching processor.
type Job struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	Type      string         `gorm:"index" json:"type"`
	Priority  JobPriority    `json:"priority"`
	Status    JobStatus      `gorm:"index" json:"status"`
	Payload   datatypes.JSON `json:"payload"`
	Result    datatypes.JSON `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	ExpiresAt *time.Time     `gorm:"index" json:"expiresAt,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Status == "" {
		j.Status = JobStatusPending
	}
	if j.Priority == "" {
		j.Priority = PriorityNormal
	}
	return nil
}

// ConfirmationStatus tracks whether a resource's extracted metadata
// and entities have been reviewed.
type ConfirmationStatus string

const (
	ConfirmationPending   ConfirmationStatus = "pending"
	ConfirmationConfirmed ConfirmationStatus = "confirmed"
)

// Resource is an uploaded document and everything the pipeline has
// derived from it.
type Resource struct {
	ID                 string                     `gorm:"primaryKey" json:"id"`
	ProjectID          *string                    `gorm:"index" json:"projectId,omitempty"`
	Name               string                     `json:"name"`
	Hash               string                     `gorm:"uniqueIndex" json:"hash"`
	Type               string                     `json:"type"`
	MimeType           string                     `json:"mimeType"`
	OriginalName       string                     `json:"originalName"`
	UploadDate         time.Time                  `json:"uploadDate"`
	FileSize           int64                      `json:"fileSize"`
	Pages              int                        `json:"pages"`
	Path               string                     `json:"path"`
	URL                string                     `json:"url,omitempty"`
	Title              string                     `json:"title,omitempty"`
	PublicationDate    string                     `json:"publicationDate,omitempty"`
	Author             string                     `json:"author,omitempty"`
	Content            string                     `json:"content,omitempty"`
	WorkingContent     string                     `json:"workingContent,omitempty"`
	TranslatedContent  string                     `json:"translatedContent,omitempty"`
	Summary            string                     `json:"summary,omitempty"`
	KeyPoints          datatypes.JSONSlice[string] `json:"keyPoints,omitempty"`
	Keywords           datatypes.JSONSlice[string] `json:"keywords,omitempty"`
	Language           string                     `json:"language,omitempty"`
	ConfirmationStatus ConfirmationStatus         `json:"confirmationStatus"`
	CreatedAt          time.Time                  `json:"createdAt"`
	UpdatedAt          time.Time                  `json:"updatedAt"`
}

func (r *Resource) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// EntityType is one name in the fixed classification vocabulary.
type EntityType struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex" json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (t *EntityType) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Alias is an alternative surface form for a confirmed entity.
type Alias struct {
	Locale string `json:"locale"`
	Value  string `json:"value"`
}

// Entity is a confirmed, resource-independent entity. (name, type) is
// unique by convention: findOrCreate enforces it and races are resolved
// by merging the duplicates.
type Entity struct {
	ID           string                                `gorm:"primaryKey" json:"id"`
	Name         string                                `gorm:"index" json:"name"`
	EntityTypeID string                                `gorm:"index" json:"entityTypeId"`
	EntityType   *EntityType                           `gorm:"foreignKey:EntityTypeID" json:"entityType,omitempty"`
	Translations datatypes.JSONType[map[string]string] `json:"translations"`
	Aliases      datatypes.JSONSlice[Alias]            `json:"aliases"`
	Description  string                                `json:"description,omitempty"`
	CreatedAt    time.Time                             `json:"createdAt"`
	UpdatedAt    time.Time                             `json:"updatedAt"`
}

func (e *Entity) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// AliasScope bounds where a pending entity alias applies.
type AliasScope string

const (
	ScopeDocument AliasScope = "document"
	ScopeProject  AliasScope = "project"
	ScopeGlobal   AliasScope = "global"
)

// PendingAlias is an alias recorded on a pending entity during a merge.
type PendingAlias struct {
	Locale string     `json:"locale"`
	Value  string     `json:"value"`
	Scope  AliasScope `json:"scope"`
}

// PendingStatus tracks a pending entity through review. Confirmation
// deletes the record, so there is no confirmed status.
type PendingStatus string

const (
	PendingActive PendingStatus = "pending"
	PendingMerged PendingStatus = "merged"
)

// MergeTargetType names the kind of record a pending entity was merged
// into.
type MergeTargetType string

const (
	MergeTargetConfirmed MergeTargetType = "confirmed"
	MergeTargetPending   MergeTargetType = "pending"
)

// MergeTarget records where a merged pending entity went.
type MergeTarget struct {
	Type MergeTargetType `json:"type"`
	ID   string          `json:"id"`
	At   time.Time       `json:"at"`
}

// PendingEntity is an extracted entity awaiting review. It belongs to
// exactly one resource and is deleted with it.
type PendingEntity struct {
	ID           string                                `gorm:"primaryKey" json:"id"`
	ResourceID   string                                `gorm:"index" json:"resourceId"`
	Resource     *Resource                             `gorm:"foreignKey:ResourceID;constraint:OnDelete:CASCADE" json:"-"`
	Name         string                                `json:"name"`
	Language     string                                `json:"language,omitempty"`
	EntityTypeID *string                               `json:"entityTypeId,omitempty"`
	EntityType   *EntityType                           `gorm:"foreignKey:EntityTypeID" json:"entityType,omitempty"`
	Translations datatypes.JSONType[map[string]string] `json:"translations"`
	Aliases      datatypes.JSONSlice[PendingAlias]     `json:"aliases"`
	Scope        AliasScope                            `json:"scope"`
	Status       PendingStatus                         `gorm:"index" json:"status"`

	// Merge state. The three columns are only ever written together,
	// through SetMerged and ClearMerged.
	MergedTargetType *MergeTargetType `json:"mergedTargetType,omitempty"`
	MergedTargetID   *string          `json:"mergedTargetId,omitempty"`
	MergedAt         *time.Time       `json:"mergedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *PendingEntity) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = PendingActive
	}
	if p.Scope == "" {
		p.Scope = ScopeDocument
	}
	return nil
}

// MergedInto returns the merge target if this pending entity has been
// merged away.
func (p *PendingEntity) MergedInto() (MergeTarget, bool) {
	if p.Status != PendingMerged || p.MergedTargetType == nil || p.MergedTargetID == nil || p.MergedAt == nil {
		return MergeTarget{}, false
	}
	return MergeTarget{Type: *p.MergedTargetType, ID: *p.MergedTargetID, At: *p.MergedAt}, true
}

// SetMerged marks this pending entity as merged into the given target.
func (p *PendingEntity) SetMerged(target MergeTarget) {
	p.Status = PendingMerged
	p.MergedTargetType = &target.Type
	p.MergedTargetID = &target.ID
	p.MergedAt = &target.At
}

// ClearMerged reverts the merge state, returning the entity to review.
func (p *PendingEntity) ClearMerged() {
	p.Status = PendingActive
	p.MergedTargetType = nil
	p.MergedTargetID = nil
	p.MergedAt = nil
}

// ResourceEntity links a resource to a confirmed entity.
type ResourceEntity struct {
	ResourceID string    `gorm:"primaryKey" json:"resourceId"`
	EntityID   string    `gorm:"primaryKey" json:"entityId"`
	CreatedAt  time.Time `json:"createdAt"`
}
