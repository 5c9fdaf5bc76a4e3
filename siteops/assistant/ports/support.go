package assistantports

import "context"

// Cache memoises model metadata between gateway round trips. A ttlSeconds
// of zero or less keeps the entry until it is evicted.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// RateLimiter admits or refuses a chat turn for the given caller key.
// Callers invoke release once the turn is over.
type RateLimiter interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Tracer records chat turns and tool dispatches. The returned func ends the
// span and takes the error the operation finished with, if any.
type Tracer interface {
	StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error))
	Event(ctx context.Context, name string, attrs map[string]any)
}

// MediaLoader turns an image reference on a chat request into the base64
// payload the model runtime expects.
type MediaLoader interface {
	LoadBase64(ctx context.Context, url string) (string, error)
}
