// Package watch streams node updates to consumers outside the silo.
//
// A Feed subscribes to a node and forwards every notification into a bounded
// Channel. Subscribers run on the node's runner, so delivery never waits for
// a consumer: an update that finds the buffer full is dropped, counted in
// Metrics and logged. Update.Sequence lets a consumer detect the gap.
//
//	feed := watch.New(ctx, config.DefaultWatchConfig())
//	w, err := feed.Watch(node)
//	for {
//	    update, err := w.Receive(ctx)
//	    if err != nil {
//	        break
//	    }
//	    fmt.Println(update.Sequence, update.Value)
//	}
//
// Watch.Close unsubscribes from the node; Feed.Shutdown closes every watch.
package watch
