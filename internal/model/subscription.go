package model

// MaxTopicRunes bounds a topic so a set_push_choice postback carrying it
// stays within the platform's 300 character data limit
const MaxTopicRunes = 80

// Subscription represents a user's subscription to a news topic
type Subscription struct {
	UserID string `gorm:"primaryKey;column:user_id;size:64"`
	Topic  string `gorm:"primaryKey;column:topic;size:100"`
}

// TableName returns the table name for Subscription
func (Subscription) TableName() string {
	return "subscriptions"
}
