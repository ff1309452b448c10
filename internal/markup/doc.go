// Package markup post-processes agent replies.
//
// Agent text may embed a reasoning region wrapped in <think>...</think> and
// arbitrary HTML. ExtractThinking separates the reasoning so it can be stored
// as metadata instead of rendered inline. Processor sanitizes display HTML
// with bluemonday's UGC policy (links gain target="_blank"), optionally
// renders markdown with goldmark first, and strips everything down to plain
// text for speech output.
package markup
