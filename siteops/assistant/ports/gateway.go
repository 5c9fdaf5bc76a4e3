package assistantports

import (
	"context"

	"github.com/ZanzyTHEbar/siteops/siteops/inference"
)

// Gateway is the model runtime surface the orchestrator depends on.
// *inference.Client satisfies it.
type Gateway interface {
	Chat(ctx context.Context, req inference.ChatRequest) (*inference.ChatResponse, error)
	ListModels(ctx context.Context) []inference.ModelDescriptor
	PullModel(ctx context.Context, name string, onProgress func(inference.PullProgress)) (bool, error)
	DeleteModel(ctx context.Context, name string) (bool, error)
	IsAvailable(ctx context.Context) bool
}

var _ Gateway = (*inference.Client)(nil)
