// Package checkpoint provides durable CheckpointStore backends for
// conversation state: a directory of JSON files, a SQLite table, and a
// read-through cache that can front either.
//
//	store, err := checkpoint.Open(ctx, cfg.Graph.Checkpoint)
//	if err != nil {
//	    return err
//	}
//	defer checkpoint.Close(store)
package checkpoint
