// Package widget implements the chat session state machine: session
// initialization with retry, the message log, the response pipeline and the
// voice turn.
//
// # Event Loop
//
// A Widget owns all of its state and mutates it only from closures executed
// by Run. Public methods post closures to the loop and return immediately.
// Network calls run on short-lived goroutines that post their results back.
// Timers are tstime.Clock AfterFunc handles whose callbacks also post back,
// so a test can drive every delay with a fake clock.
//
// After each closure the widget publishes an immutable Snapshot, both to the
// optional Sink and to Snapshot().
//
// # Generations
//
// The session and the voice turn carry generation counters. Tearing a session
// down, stopping capture or cancelling speech bumps the matching counter, and
// every completion checks the counter it captured before acting. Late replies
// from a previous session are dropped rather than appended to a new chat.
//
// # Voice Turn
//
//	Idle -> Listening -> ActivelyCapturing -> PendingPauseConfirmation
//	     -> Thinking -> Speaking -> Listening (or Muted)
//
// A fragment moves Listening to ActivelyCapturing; one second without
// fragments moves it back. A final fragment arms the pause window; when it
// elapses the utterance is submitted as a user message. Speech output tries
// the remote synthesizer first and falls back to local speech.
package widget
