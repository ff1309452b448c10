// Package capture streams speech recognition results from an external
// recognizer process.
//
// The recognizer prints one JSON object per line:
//
//	{"transcript": "turn on the", "final": false, "confidence": 0.4}
//	{"transcript": "turn on the lights", "final": true, "confidence": 0.92}
//	{"error": "no-speech"}
//
// Errors such as "not-allowed" or "unsupported" are fatal and end voice
// mode. "no-speech" and "aborted" are transient; the caller restarts
// capture when the stream ends.
package capture
