// ABOUTME: Computes the difference between two view models
// ABOUTME: Front-ends apply message-level patches instead of redrawing the whole log

package presenter

// Diff describes how next differs from prev.
type Diff struct {
	Added   []MessageView // in log order
	Updated []MessageView
	Removed []string // message ids
	Chrome  bool     // anything outside the message list changed
}

// Empty reports whether nothing changed.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0 && !d.Chrome
}

// Compute returns the diff from prev to next. A zero prev yields every
// message as added.
func Compute(prev, next ViewModel) Diff {
	var d Diff

	before := make(map[string]MessageView, len(prev.Messages))
	for _, m := range prev.Messages {
		before[m.ID] = m
	}
	after := make(map[string]struct{}, len(next.Messages))
	for _, m := range next.Messages {
		after[m.ID] = struct{}{}
		old, ok := before[m.ID]
		switch {
		case !ok:
			d.Added = append(d.Added, m)
		case old != m:
			d.Updated = append(d.Updated, m)
		}
	}
	for _, m := range prev.Messages {
		if _, ok := after[m.ID]; !ok {
			d.Removed = append(d.Removed, m.ID)
		}
	}

	d.Chrome = !sameChrome(prev, next)
	return d
}

// sameChrome compares everything except the version and the message list.
func sameChrome(a, b ViewModel) bool {
	return a.ShowBubble == b.ShowBubble &&
		a.ShowWindow == b.ShowWindow &&
		a.Minimized == b.Minimized &&
		a.Ended == b.Ended &&
		a.Expanded == b.Expanded &&
		a.DarkMode == b.DarkMode &&
		a.SearchMode == b.SearchMode &&
		a.Title == b.Title &&
		a.ThemeColor == b.ThemeColor &&
		a.Position == b.Position &&
		a.ShowWelcome == b.ShowWelcome &&
		a.WelcomeText == b.WelcomeText &&
		a.InputDisabled == b.InputDisabled &&
		a.Placeholder == b.Placeholder &&
		a.VoiceMode == b.VoiceMode &&
		a.VoiceState == b.VoiceState &&
		a.VoiceClass == b.VoiceClass &&
		a.VoiceStatus == b.VoiceStatus &&
		a.VoiceLevel == b.VoiceLevel &&
		a.MicMuted == b.MicMuted &&
		a.Menu == b.Menu
}
