package model

// PushTopic records whether a subscribed topic is included in scheduled pushes.
// Disabled rows are kept so a declined topic can be told apart from one never configured.
type PushTopic struct {
	UserID    string `gorm:"primaryKey;column:user_id;size:64"`
	Topic     string `gorm:"primaryKey;column:topic;size:100"`
	IsEnabled bool   `gorm:"column:is_enabled;not null"`
}

// TableName returns the table name for PushTopic
func (PushTopic) TableName() string {
	return "push_topics"
}

// PushSchedule holds the daily "HH:MM" push time of a user. A nil PushTime means cleared.
type PushSchedule struct {
	UserID   string  `gorm:"primaryKey;column:user_id;size:64"`
	PushTime *string `gorm:"column:push_time;size:5"`
}

// TableName returns the table name for PushSchedule
func (PushSchedule) TableName() string {
	return "push_schedule"
}
