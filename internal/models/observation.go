package models

import (
	"time"

	"gorm.io/datatypes"
)

// Category is the closed damage-type vocabulary. Anything the extractor
// cannot recognize lands in CategoryOther.
type Category string

const (
	CategoryCrack             Category = "crack"
	CategoryPothole           Category = "pothole"
	CategoryAlligatorCracking Category = "alligator-cracking"
	CategoryDeformation       Category = "deformation"
	CategorySpall             Category = "spall"
	CategoryChip              Category = "chip"
	CategoryEdgeDamage        Category = "edge-damage"
	CategoryJointFailure      Category = "joint-failure"
	CategoryWear              Category = "wear"
	CategoryOther             Category = "other"
)

type Severity string

const (
	SeverityLight    Severity = "light"
	SeverityMedium   Severity = "medium"
	SeveritySevere   Severity = "severe"
	SeverityCritical Severity = "critical"
)

// FieldObservation is the persisted result of one voice ingestion.
// Description is never empty: when both transcription and extraction come up
// blank a placeholder is stored instead. AudioURL always points at permanent
// storage, never at a temp path; AudioObject is the storage key used by the
// delete path to remove the blob together with the row.
type FieldObservation struct {
	ID        string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ProjectID string `gorm:"column:project_id;type:text;index" json:"project_id"`
	CreatedBy string `gorm:"column:created_by;type:text" json:"created_by"`

	Category Category `gorm:"column:category;type:text" json:"category"`
	Severity Severity `gorm:"column:severity;type:text" json:"severity"`

	Position          *string `gorm:"column:position;type:text" json:"position"`
	Description       string  `gorm:"column:description;type:text" json:"description"`
	RecommendedAction *string `gorm:"column:recommended_action;type:text" json:"recommended_action"`
	EstimatedCost     *int64  `gorm:"column:estimated_cost;type:bigint" json:"estimated_cost"`

	AudioURL    string `gorm:"column:audio_url;type:text" json:"audio_url"`
	AudioObject string `gorm:"column:audio_object;type:text" json:"audio_object"`
	Transcript  string `gorm:"column:transcript;type:text" json:"transcript"`

	// Pipeline diagnostics (converted flag, degraded reason) for operators.
	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (FieldObservation) TableName() string { return "field_observations" }
