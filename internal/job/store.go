package job

import "context"

// Store persists job snapshots. Save replaces the whole job so readers never
// observe a partially updated value.
type Store interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, j Job) error
	Get(ctx context.Context, id string) (Job, bool, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Job, error)
}
