package bootstrap

import "context"

// Seeder loads reference data into the storage S once the database is ready.
type Seeder[S any] interface {
	Seed(ctx context.Context, storage S) error
}

// SeederFunc lets a plain function act as a Seeder.
type SeederFunc[S any] func(ctx context.Context, storage S) error

func (f SeederFunc[S]) Seed(ctx context.Context, storage S) error {
	return f(ctx, storage)
}
