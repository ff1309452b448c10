// ABOUTME: Voice controller: listen, detect a pause, think, speak, then listen again
// ABOUTME: Capture and speech run off the loop; generations discard stale completions

package widget

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/2389/coven-chat/internal/capture"
)

type voiceState struct {
	active     bool
	state      VoiceState
	manualMute bool
	status     string
	level      float64

	finalText string // finalized fragments of the current utterance
	interim   string // latest non-final fragment

	captureCancel context.CancelFunc
	captureGen    uint64
	speechCancel  context.CancelFunc
	speechGen     uint64
}

// micMuted reports whether the microphone is off, by hand or automatically
// while a response is pending or being spoken.
func (v *voiceState) micMuted() bool {
	return v.manualMute || v.state == VoiceThinking || v.state == VoiceMuted
}

func (v *voiceState) transcript() string {
	return strings.TrimSpace(strings.TrimSpace(v.finalText) + " " + strings.TrimSpace(v.interim))
}

const (
	statusListening  = "Listening to you..."
	statusMuted      = "Microphone muted"
	msgVoiceNotAvail = "Voice mode is not supported in this environment."
)

var errNoRemoteSpeech = errors.New("remote speech not configured")

func (w *Widget) toggleVoice() {
	if !w.cfg.Voice.Allow {
		w.logger.Debug("voice mode is not allowed")
		return
	}
	w.stopSpeech()
	if w.voice.active {
		w.deactivateVoice()
		return
	}
	w.voice.active = true
	w.voice.manualMute = false
	w.logger.Info("voice mode activated")
	w.enterListening()
}

// activateVoiceForPendingResponse enters voice mode straight into Thinking
// because a request is about to be sent.
func (w *Widget) activateVoiceForPendingResponse() {
	w.voice.active = true
	w.voice.manualMute = false
	w.voice.state = VoiceThinking
	w.voice.status = fmt.Sprintf("%s is thinking...", w.agentName())
	w.logger.Info("voice mode activated with a response pending")
}

func (w *Widget) deactivateVoice() {
	w.stopCapture()
	w.stopSpeech()
	w.stopVoiceTimers()
	w.voice.active = false
	w.voice.state = VoiceIdle
	w.voice.manualMute = false
	w.voice.finalText = ""
	w.voice.interim = ""
	w.voice.status = ""
	w.voice.level = 0
}

func (w *Widget) enterListening() {
	w.voice.state = VoiceListening
	w.voice.status = statusListening
	w.voice.level = 0
	w.voice.finalText = ""
	w.voice.interim = ""
	w.startCapture()
}

func (w *Widget) enterMuted() {
	w.stopCapture()
	stop(&w.timers.silence)
	stop(&w.timers.pause)
	stop(&w.timers.captureRestart)
	w.voice.state = VoiceMuted
	w.voice.status = statusMuted
	w.voice.level = 0
}

func (w *Widget) startCapture() {
	if !w.voice.active || w.voice.manualMute {
		return
	}
	w.stopCapture()
	w.voice.captureGen++
	gen := w.voice.captureGen

	if w.deps.Recognizer == nil {
		w.voiceUnsupported()
		return
	}
	ctx, cancel := context.WithCancel(w.ctx)
	events, err := w.deps.Recognizer.Start(ctx)
	if err != nil {
		cancel()
		if errors.Is(err, capture.ErrUnsupported) {
			w.voiceUnsupported()
			return
		}
		w.logger.Error("error starting speech capture", "error", err)
		w.voiceFailed(err)
		return
	}
	w.voice.captureCancel = cancel

	w.goReader(func() {
		for ev := range events {
			if !w.post(func() { w.onCaptureEvent(gen, ev) }) {
				return
			}
		}
		w.post(func() { w.onCaptureEnded(gen) })
	})
}

func (w *Widget) stopCapture() {
	if w.voice.captureCancel != nil {
		w.voice.captureCancel()
		w.voice.captureCancel = nil
	}
	// Events already queued from the old stream are dropped.
	w.voice.captureGen++
}

func (w *Widget) voiceUnsupported() {
	w.logger.Warn("speech capture is not supported")
	w.deactivateVoice()
	w.appendMessage(SenderSystem, KindNotice, msgVoiceNotAvail)
}

func (w *Widget) voiceFailed(err error) {
	w.deactivateVoice()
	w.appendMessage(SenderSystem, KindNotice, "Voice recognition error: "+err.Error())
}

func (w *Widget) onCaptureEvent(gen uint64, ev capture.Event) {
	if gen != w.voice.captureGen || !w.voice.active {
		return
	}
	if ev.Err != nil {
		if ev.Fatal {
			w.logger.Error("fatal speech capture error", "error", ev.Err)
			w.voiceFailed(ev.Err)
			return
		}
		w.logger.Debug("speech capture error", "error", ev.Err)
		return
	}
	if !w.voice.state.listening() {
		return
	}

	w.voice.level = ev.Confidence
	if w.voice.level == 0 {
		w.voice.level = 0.5
	}
	stop(&w.timers.pause)

	if ev.Final {
		w.voice.finalText += " " + ev.Transcript
		w.voice.interim = ""
	} else {
		w.voice.interim = ev.Transcript
	}

	if ev.Final && strings.TrimSpace(ev.Transcript) != "" {
		w.voice.state = VoicePendingPauseConfirmation
		stop(&w.timers.silence)
		gen := w.voice.captureGen
		w.timers.pause = w.after(w.cfg.Timing.PauseWindow, func() {
			w.timers.pause = nil
			if gen != w.voice.captureGen || w.voice.state != VoicePendingPauseConfirmation {
				return
			}
			w.onPauseConfirmed()
		})
		return
	}

	w.voice.state = VoiceActivelyCapturing
	stop(&w.timers.silence)
	w.timers.silence = w.after(w.cfg.Timing.SilenceWindow, func() {
		w.timers.silence = nil
		if w.voice.state == VoiceActivelyCapturing {
			w.voice.state = VoiceListening
			w.voice.level = 0
		}
	})
}

func (w *Widget) onPauseConfirmed() {
	text := w.voice.transcript()
	w.voice.finalText = ""
	w.voice.interim = ""

	w.stopCapture()
	stop(&w.timers.silence)
	w.voice.state = VoiceThinking
	w.voice.status = fmt.Sprintf("%s is thinking...", w.agentName())
	w.voice.level = 0

	if text == "" {
		w.enterListening()
		return
	}
	w.logger.Debug("voice utterance complete", "chars", len(text))
	w.appendMessage(SenderUser, KindChat, text)
	w.ui.firstUserMessage = false
	if !w.requestResponse(text, false) {
		w.resumeListening()
	}
}

// onCaptureEnded restarts capture when the stream stops on its own while
// the widget is still listening.
func (w *Widget) onCaptureEnded(gen uint64) {
	if gen != w.voice.captureGen {
		return
	}
	w.voice.captureCancel = nil
	if !w.voice.active || !w.voice.state.listening() || w.voice.manualMute {
		return
	}
	w.logger.Debug("speech capture ended, restarting")
	stop(&w.timers.captureRestart)
	w.timers.captureRestart = w.after(w.cfg.Timing.CaptureRestartDelay, func() {
		w.timers.captureRestart = nil
		if gen != w.voice.captureGen || !w.voice.active || !w.voice.state.listening() {
			return
		}
		w.startCapture()
	})
}

// speak plays text through the remote synthesizer, falling back to local
// speech after a short delay.
func (w *Widget) speak(text string) {
	if !w.voice.active {
		return
	}
	w.stopCapture()
	stop(&w.timers.silence)
	stop(&w.timers.pause)
	w.stopSpeech()

	w.voice.state = VoiceSpeaking
	w.voice.level = 0
	if w.pipe.firstIndicator {
		w.voice.status = fmt.Sprintf("%s incoming...", w.agentName())
		w.pipe.firstIndicator = false
	} else {
		w.voice.status = fmt.Sprintf("%s is responding...", w.agentName())
	}

	if strings.TrimSpace(text) == "" {
		w.speechFinished()
		return
	}

	w.voice.speechGen++
	gen := w.voice.speechGen
	ctx, cancel := context.WithCancel(w.ctx)
	w.voice.speechCancel = cancel

	tts, player := w.deps.TTS, w.deps.Player
	w.spawn(func() {
		err := playRemote(ctx, tts, player, text)
		w.post(func() { w.onRemoteSpeechDone(ctx, gen, text, err) })
	})
}

func playRemote(ctx context.Context, tts Synthesizer, player AudioPlayer, text string) error {
	if tts == nil || player == nil {
		return errNoRemoteSpeech
	}
	url, err := tts.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	if err := player.Play(ctx, url); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	return nil
}

func (w *Widget) onRemoteSpeechDone(ctx context.Context, gen uint64, text string, err error) {
	if gen != w.voice.speechGen {
		return
	}
	if err == nil {
		w.speechFinished()
		return
	}
	w.logger.Warn("remote speech failed, using local fallback", "error", err)
	stop(&w.timers.ttsFallback)
	w.timers.ttsFallback = w.after(w.cfg.Timing.TTSFallbackDelay, func() {
		w.timers.ttsFallback = nil
		if gen != w.voice.speechGen {
			return
		}
		local := w.deps.Local
		if local == nil {
			w.speechFinished()
			return
		}
		w.spawn(func() {
			if err := local.Speak(ctx, text); err != nil {
				w.logger.Warn("local speech failed", "error", err)
			}
			w.post(func() {
				if gen == w.voice.speechGen {
					w.speechFinished()
				}
			})
		})
	})
}

func (w *Widget) speechFinished() {
	if w.voice.speechCancel != nil {
		w.voice.speechCancel()
		w.voice.speechCancel = nil
	}
	if !w.voice.active || w.voice.state != VoiceSpeaking {
		return
	}
	w.resumeListening()
}

// resumeListening returns to listening, or to muted if the user muted the
// microphone while the turn was in progress.
func (w *Widget) resumeListening() {
	if w.voice.manualMute {
		w.enterMuted()
		return
	}
	w.enterListening()
}

// stopSpeech cancels any utterance in progress without changing state.
func (w *Widget) stopSpeech() {
	if w.voice.speechCancel != nil {
		w.voice.speechCancel()
		w.voice.speechCancel = nil
	}
	w.voice.speechGen++
	stop(&w.timers.ttsFallback)
}

func (w *Widget) stopVoiceTimers() {
	stop(&w.timers.silence)
	stop(&w.timers.pause)
	stop(&w.timers.ttsFallback)
	stop(&w.timers.captureRestart)
}

func (w *Widget) toggleMute() {
	if !w.voice.active {
		return
	}
	if w.voice.manualMute {
		w.voice.manualMute = false
		w.logger.Debug("microphone unmuted")
		if w.voice.state == VoiceMuted {
			w.enterListening()
		}
		return
	}
	w.voice.manualMute = true
	w.logger.Debug("microphone muted")
	if w.voice.state.listening() {
		w.enterMuted()
	}
}

// continueSpeaking cuts speech short and hands the turn back to the user.
func (w *Widget) continueSpeaking() {
	if !w.voice.active || w.voice.state != VoiceSpeaking {
		return
	}
	w.stopSpeech()
	w.resumeListening()
}
