package schema

import "time"

// ConditionOperator compares a resolved payload field against a value
type ConditionOperator string

const (
	ConditionOperatorEquals      ConditionOperator = "equals"
	ConditionOperatorContains    ConditionOperator = "contains"
	ConditionOperatorGreaterThan ConditionOperator = "greater_than"
	ConditionOperatorLessThan    ConditionOperator = "less_than"
	ConditionOperatorIsEmpty     ConditionOperator = "is_empty"
	ConditionOperatorIsNotEmpty  ConditionOperator = "is_not_empty"
)

// ConditionLogic joins a condition to the running result of the previous ones
type ConditionLogic string

const (
	ConditionLogicAnd ConditionLogic = "and"
	ConditionLogicOr  ConditionLogic = "or"
)

// WebhookCondition represents the webhook_conditions table - ordered delivery filters
type WebhookCondition struct {
	// ID is an auto-incrementing sequence number
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// WebhookID is the webhook this condition belongs to
	WebhookID string `gorm:"column:webhook_id;not null;index;type:varchar(36)"`
	// Position orders conditions within a webhook, starting at 0
	Position int `gorm:"column:position;not null;default:0"`
	// FieldPath is a dot-path into the event payload (e.g. "message.type")
	FieldPath string `gorm:"column:field_path;not null;type:varchar(255)"`
	// Operator is the comparison applied to the resolved field
	Operator ConditionOperator `gorm:"column:operator;not null;type:varchar(20)"`
	// Value is the comparison value, stored as text and coerced per operator
	Value string `gorm:"column:value;type:text"`
	// LogicOperator joins this condition to the previous result; ignored at position 0
	LogicOperator ConditionLogic `gorm:"column:logic_operator;not null;default:and;type:varchar(3)"`
	// CreatedAt is the timestamp when this condition was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the WebhookCondition model
func (WebhookCondition) TableName() string {
	return "webhook_conditions"
}
