// Package speech provides the speech output side of voice mode.
//
// RemoteTTS turns text into an audio URL using an HTTP text-to-speech
// service, caching results in an AudioCache. Player plays that URL through
// an external command. LocalVoice is the on-host fallback used when the
// remote path fails.
//
// Every adapter returns ErrUnsupported when its endpoint or command is not
// configured, and honours context cancellation so speech can be interrupted.
package speech
