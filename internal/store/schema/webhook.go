package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Webhook represents the webhooks table - user-configured delivery endpoints
type Webhook struct {
	// ID is a unique identifier for the webhook (UUID)
	ID string `gorm:"column:id;primaryKey;type:varchar(36)"`
	// WorkspaceID is the owning workspace
	WorkspaceID string `gorm:"column:workspace_id;not null;index;type:varchar(36)"`
	// TargetURL is the HTTPS endpoint where events will be delivered
	TargetURL string `gorm:"column:target_url;not null;type:text"`
	// IsActive indicates whether this webhook should receive events.
	// Deactivation is logical; rows are never hard-deleted.
	IsActive bool `gorm:"column:is_active;not null;default:true"`
	// EventTypes is a JSON array of subscribed event types, or ["*"] for all
	EventTypes datatypes.JSON `gorm:"column:event_types;not null;type:jsonb"`
	// CustomHeaders is a JSON object of extra headers sent with each delivery
	CustomHeaders datatypes.JSON `gorm:"column:custom_headers;type:jsonb"`
	// TimeoutSeconds is the per-webhook delivery timeout, clamped to the platform maximum
	TimeoutSeconds int `gorm:"column:timeout_seconds;not null;default:10"`
	// ConditionsEnabled gates condition evaluation before delivery
	ConditionsEnabled bool `gorm:"column:conditions_enabled;not null;default:false"`
	// TransformEnabled gates payload transformation before delivery
	TransformEnabled bool `gorm:"column:transform_enabled;not null;default:false"`
	// Template is the payload transformation template (an arbitrary JSON tree)
	Template datatypes.JSON `gorm:"column:template;type:jsonb"`
	// CreatedAt is the timestamp when this webhook was registered
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this webhook was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Webhook model
func (Webhook) TableName() string {
	return "webhooks"
}
