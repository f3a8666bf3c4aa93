// Package voice turns notification actions into audible speech: pre-sound
// first, then the message synthesized through the Google Translate TTS
// endpoint.
package voice

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/ytlin/thsr-reminder/internal/models"
	"github.com/ytlin/thsr-reminder/internal/sound"
)

// DefaultTTSBaseURL is the speech synthesis endpoint.
const DefaultTTSBaseURL = "https://translate.google.com/translate_tts"

// Synthesizer fetches speech audio into temporary files and hands them to
// the player with delete-after-play, so every synthesized clip is removed
// no matter how playback goes.
type Synthesizer struct {
	baseURL    string
	httpClient *http.Client
	player     *sound.Player
}

// NewSynthesizer creates a synthesizer speaking through the given player.
// An empty baseURL selects the public endpoint.
func NewSynthesizer(baseURL string, player *sound.Player) *Synthesizer {
	if baseURL == "" {
		baseURL = DefaultTTSBaseURL
	}
	return &Synthesizer{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		player: player,
	}
}

// Speak plays the action's pre-sound, then synthesizes and plays its
// message. Synthesis failures are returned; the action is not retried.
func (s *Synthesizer) Speak(action models.NotificationAction) error {
	s.player.Play(action.SoundBefore)

	path, err := s.synthesize(action.Message, action.Lang)
	if err != nil {
		return err
	}

	s.player.PlayAndRemove(path)
	return nil
}

// NotifyError plays the fixed error notification.
func (s *Synthesizer) NotifyError() {
	s.player.NotifyError()
}

// synthesize fetches the spoken message into a temp file and returns its
// path. The file is cleaned up here on every failure path; on success the
// caller owns it.
func (s *Synthesizer) synthesize(message, lang string) (string, error) {
	query := url.Values{}
	query.Set("ie", "UTF-8")
	query.Set("client", "tw-ob")
	query.Set("tl", lang)
	query.Set("q", message)

	resp, err := s.httpClient.Get(s.baseURL + "?" + query.Encode())
	if err != nil {
		return "", fmt.Errorf("synthesize speech: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("synthesize speech: HTTP %d", resp.StatusCode)
	}

	f, err := os.CreateTemp("", "thsr-voice-*.mp3")
	if err != nil {
		return "", fmt.Errorf("create speech file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write speech file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close speech file: %w", err)
	}

	return f.Name(), nil
}
