// Package feed is the consumer side of the live service: one Poller per
// category bootstraps a cursor, then tails on a fixed interval, feeding a
// rolling buffer and an optional lifecycle cache. Pollers talk to the
// server through a Transport (HTTP JSON or gRPC); Retarget swaps the
// Transport and starts over from a fresh bootstrap. A Hub groups
// independent pollers and re-dials them when a feed's endpoint changes.
//
// Subscribe may drop updates for a slow reader; Follow never drops and
// holds the poller until the reader catches up.
//
// Example:
//
//	tr, err := feed.Dial("http://localhost:4000", "")
//	if err != nil { /* handle */ }
//	p := feed.NewPoller(tr, feed.Options{Category: "business"}, logger)
//	updates := p.Follow(ctx)
//	p.Start(ctx)
//	defer p.Stop()
//	for u := range updates {
//	    fmt.Println(u.State.Status, len(u.Items))
//	}
package feed
