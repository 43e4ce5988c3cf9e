package news

import (
	"context"
	"fmt"

	"github.com/user/news-push-bot/internal/model"
)

// Lookup fetches recent headlines for a topic.
// Implementations never return an error: a failed lookup yields an empty slice.
type Lookup interface {
	Fetch(ctx context.Context, topic string, limit int) []model.Headline
}

// FetchError describes why a topic lookup came back empty
type FetchError struct {
	Topic string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch news for %q: %v", e.Topic, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
