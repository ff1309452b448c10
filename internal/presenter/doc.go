// Package presenter is the presentation adapter between the widget and any
// front-end.
//
// Build turns an immutable widget.Snapshot into a ViewModel that carries every
// display decision: which surface is visible, menu labels, the input
// placeholder and whether typing is allowed, and the voice status class.
// Compute diffs two view models at message granularity so a front-end can
// patch its log instead of redrawing it.
//
// Broadcaster implements widget.Sink and fans updates out to subscribers:
//
//	b := presenter.NewBroadcaster(logger)
//	w, _ := widget.New(cfg, widget.Deps{Sink: b, ...})
//	updates, _ := b.Subscribe(ctx)
//
// Publishing never blocks the widget event loop. A subscriber that falls
// behind loses updates and should render Update.View in full.
package presenter
