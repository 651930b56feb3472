package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// watchSnapshots opens a change stream on coll and emits load's result once
// up front and again after every change. Only the latest snapshot is kept
// for slow readers. The channel closes when ctx ends or the stream fails.
func watchSnapshots[T any](
	ctx context.Context,
	coll *mongo.Collection,
	load func(context.Context) ([]T, error),
) (<-chan []T, error) {
	stream, err := coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", coll.Name(), err)
	}

	first, err := load(ctx)
	if err != nil {
		_ = stream.Close(context.Background())
		return nil, err
	}

	out := make(chan []T, 1)
	out <- first

	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			snapshot, err := load(ctx)
			if err != nil {
				return
			}
			select {
			case <-out:
			default:
			}
			select {
			case out <- snapshot:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
