// Package sound plays audio files through an external player command,
// serialized on a background queue.
package sound

import (
	"log/slog"
	"os"
	"os/exec"
	"sync"
)

// DefaultPlayerCommand is used when no player is configured.
var DefaultPlayerCommand = []string{"mpg123", "-q"}

// Fixed notification files played when the process hits a fatal error.
const (
	errorSoundPath = "sound/error_signal.mp3"
	errorVoicePath = "voices/error_occurred.mp3"
)

type request struct {
	path   string
	remove bool
}

// Player queues files and plays them one at a time. Enqueueing never
// blocks; when the queue is full the file is dropped with a warning (a
// stale reminder is worse than a missing one).
type Player struct {
	command []string
	logger  *slog.Logger

	queue chan request
	wg    sync.WaitGroup
}

// NewPlayer starts the playback goroutine. command is the player argv
// prefix; the file path is appended as the final argument.
func NewPlayer(command []string, logger *slog.Logger) *Player {
	if len(command) == 0 {
		command = DefaultPlayerCommand
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Player{
		command: command,
		logger:  logger,
		queue:   make(chan request, 64),
	}

	p.wg.Add(1)
	go p.loop()
	return p
}

// Play queues a file for playback.
func (p *Player) Play(path string) {
	if path == "" {
		return
	}
	p.enqueue(request{path: path})
}

// PlayAndRemove queues a file for playback and deletes it afterwards,
// whether or not playback succeeded.
func (p *Player) PlayAndRemove(path string) {
	p.enqueue(request{path: path, remove: true})
}

// NotifyError plays the fixed "error occurred" notification.
func (p *Player) NotifyError() {
	p.Play(errorSoundPath)
	p.Play(errorVoicePath)
}

// Close drains the queue and stops the playback goroutine. No Play calls
// may follow.
func (p *Player) Close() {
	close(p.queue)
	p.wg.Wait()
}

func (p *Player) enqueue(req request) {
	select {
	case p.queue <- req:
	default:
		p.logger.Warn("playback queue full, dropping file", "path", req.path)
		if req.remove {
			os.Remove(req.path)
		}
	}
}

func (p *Player) loop() {
	defer p.wg.Done()

	for req := range p.queue {
		p.play(req)
	}
}

func (p *Player) play(req request) {
	if req.remove {
		defer os.Remove(req.path)
	}

	args := append(append([]string(nil), p.command[1:]...), req.path)
	cmd := exec.Command(p.command[0], args...)
	if err := cmd.Run(); err != nil {
		p.logger.Error("playback failed", "path", req.path, "error", err)
	}
}
