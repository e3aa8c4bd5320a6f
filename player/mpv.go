package player

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/opentube/opentube/constant"
	"github.com/opentube/opentube/log"
	"github.com/samber/lo"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
	quitTimeout       = 3 * time.Second
)

// MPV is an Engine driving an mpv process over JSON-IPC.
//
// One process is started lazily and reused for every source. The video
// locator is loaded as the main file and the audio locator is attached as an
// external audio track, which mpv plays in sync with the video.
type MPV struct {
	path string

	mu         sync.Mutex
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{}
	events     *eventListener
	listener   func(Event)
	tag        uint64
	loaded     bool
	playing    bool
	released   bool

	ipcMu     sync.Mutex
	prepareMu sync.Mutex
}

// NewMPV returns an engine launching the mpv binary at path.
func NewMPV(path string) *MPV {
	if path == "" {
		path = "mpv"
	}
	return &MPV{path: path}
}

// Socket returns the IPC socket path, empty until the process is started.
func (m *MPV) Socket() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.socketPath
}

// Exited returns a channel closed when the current mpv process exits,
// for instance because the user closed its window. It is nil before the first Prepare.
func (m *MPV) Exited() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exited
}

// SetListener installs the event callback.
func (m *MPV) SetListener(listener func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = listener
}

// Prepare loads source paused. It returns once the request is queued; Ready
// or Error follows asynchronously.
func (m *MPV) Prepare(ctx context.Context, source MergedSource) error {
	video, err := sanitizeMediaTarget(source.Video)
	if err != nil {
		return fmt.Errorf("invalid video locator: %w", err)
	}
	audio, err := sanitizeMediaTarget(source.Audio)
	if err != nil {
		return fmt.Errorf("invalid audio locator: %w", err)
	}

	m.mu.Lock()
	if m.released {
		m.mu.Unlock()
		return ErrReleased
	}
	m.tag = source.Tag
	m.loaded = false
	m.playing = false
	m.mu.Unlock()

	go func() {
		m.prepareMu.Lock()
		defer m.prepareMu.Unlock()

		if ctx.Err() != nil || !m.current(source.Tag) {
			return
		}

		if err := m.ensureRunning(); err != nil {
			m.emit(Event{Kind: Error, Tag: source.Tag, Err: err})
			return
		}

		for _, command := range loadCommands(video, audio, sanitizeTitle(source.Hints.Title)) {
			if _, err := m.sendCommand(command...); err != nil {
				m.emit(Event{Kind: Error, Tag: source.Tag, Err: fmt.Errorf("load source: %w", err)})
				return
			}
		}
	}()

	return nil
}

// loadCommands builds the IPC commands that load a merged source paused.
// change-list append takes the locator verbatim, so URLs containing list
// separators survive.
func loadCommands(video, audio, title string) [][]any {
	return [][]any{
		{"set_property", "pause", true},
		{"change-list", "audio-files", "clr", ""},
		{"change-list", "audio-files", "append", audio},
		{"set_property", "force-media-title", title},
		{"loadfile", video, "replace"},
	}
}

// buildArgs returns the mpv command line for an idle process listening on socket.
// Only what the engine needs is passed so the user's mpv.conf still applies.
func buildArgs(socket string) []string {
	return []string{
		"--no-terminal",
		"--really-quiet",
		fmt.Sprintf("--input-ipc-server=%s", socket),
		fmt.Sprintf("--title=%s", constant.OpenTube),
		"--force-window=yes",
		"--idle=yes",
		"--keep-open=no",
	}
}

func (m *MPV) current(tag uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tag == tag && !m.released
}

// ensureRunning starts mpv and the event listener unless a live process exists.
func (m *MPV) ensureRunning() error {
	m.mu.Lock()
	if m.cmd != nil && !closed(m.exited) {
		m.mu.Unlock()
		return nil
	}

	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("generate socket name: %w", err)
	}
	socket := filepath.Join(os.TempDir(), fmt.Sprintf("%s-%x.sock", constant.OpenTube, randomBytes))

	cmd := exec.Command(m.path, buildArgs(socket)...)
	cmd.SysProcAttr = sysProcAttr()
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("start mpv: %w", err)
	}

	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
		log.Infof("mpv process %d exited", cmd.Process.Pid)
	}()

	m.cmd = cmd
	m.exited = exited
	m.socketPath = socket
	m.mu.Unlock()

	if err := waitForSocket(socket, exited); err != nil {
		if !closed(exited) {
			log.Warnf("killing mpv: socket never became ready")
			_ = killProcess(cmd)
		}
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	events, err := listen(socket, m.handle)
	if err != nil {
		_ = killProcess(cmd)
		return err
	}

	m.mu.Lock()
	if m.events != nil {
		go m.events.Stop()
	}
	m.events = events
	m.mu.Unlock()

	return nil
}

// waitForSocket polls until the IPC socket accepts connections.
func waitForSocket(socket string, exited <-chan struct{}) error {
	for i := 0; i < socketWaitRetries; i++ {
		time.Sleep(socketWaitDelay)

		if closed(exited) {
			return errors.New("mpv exited before socket was ready")
		}

		conn, err := net.Dial("unix", socket)
		if err == nil {
			_ = conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", socket, socketWaitRetries)
}

// handle translates mpv events into engine events for the current tag.
func (m *MPV) handle(evt mpvEvent) {
	m.mu.Lock()
	tag := m.tag
	var out *Event

	switch evt.Event {
	case "file-loaded":
		m.loaded = true
		out = &Event{Kind: Ready, Tag: tag}
	case "end-file":
		switch evt.Reason {
		case "eof":
			m.loaded = false
			m.playing = false
			out = &Event{Kind: Ended, Tag: tag}
		case "error":
			m.loaded = false
			m.playing = false
			out = &Event{Kind: Error, Tag: tag, Err: fmt.Errorf("mpv: %s", lo.Ternary(evt.FileError != "", evt.FileError, "playback error"))}
		}
	case "property-change":
		if evt.Name != "pause" || !m.loaded {
			break
		}
		paused, ok := evt.Data.(bool)
		if !ok {
			break
		}
		m.playing = !paused
		if paused {
			out = &Event{Kind: Paused, Tag: tag}
		} else {
			out = &Event{Kind: Playing, Tag: tag}
		}
	}
	m.mu.Unlock()

	if out != nil {
		m.emit(*out)
	}
}

func (m *MPV) emit(evt Event) {
	m.mu.Lock()
	listener := m.listener
	m.mu.Unlock()

	if listener != nil {
		listener(evt)
	}
}

// Play resumes playback.
func (m *MPV) Play() error {
	_, err := m.sendCommand("set_property", "pause", false)
	return err
}

// Pause suspends playback.
func (m *MPV) Pause() error {
	_, err := m.sendCommand("set_property", "pause", true)
	return err
}

// SeekTo jumps to an absolute position.
func (m *MPV) SeekTo(position time.Duration) error {
	_, err := m.sendCommand("seek", position.Seconds(), "absolute")
	return err
}

// CurrentPosition returns the playback position, or 0 when nothing is loaded.
func (m *MPV) CurrentPosition() time.Duration {
	return m.getDuration("time-pos")
}

// Duration returns the length of the loaded source, or 0 when unknown.
func (m *MPV) Duration() time.Duration {
	return m.getDuration("duration")
}

// IsPlaying reports whether the loaded source is unpaused.
func (m *MPV) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// Stop unloads the current source and keeps the process for the next one.
func (m *MPV) Stop() error {
	m.mu.Lock()
	m.tag++
	m.loaded = false
	m.playing = false
	running := m.cmd != nil && !closed(m.exited)
	m.mu.Unlock()

	if !running {
		return nil
	}
	_, err := m.sendCommand("stop")
	return err
}

// Release quits mpv and removes its socket. The engine cannot be reused.
func (m *MPV) Release() error {
	m.mu.Lock()
	if m.released {
		m.mu.Unlock()
		return nil
	}
	m.released = true
	m.listener = nil
	cmd, exited, socket, events := m.cmd, m.exited, m.socketPath, m.events
	m.events = nil
	m.mu.Unlock()

	if events != nil {
		events.Stop()
	}

	if cmd == nil {
		return nil
	}

	_, _ = m.sendCommand("quit")

	select {
	case <-exited:
	case <-time.After(quitTimeout):
		_ = killProcess(cmd)
	}

	_ = os.Remove(socket)
	return nil
}

func (m *MPV) getDuration(property string) time.Duration {
	data, err := m.sendCommand("get_property", property)
	if err != nil {
		return 0
	}

	seconds, ok := data.(float64)
	if !ok || seconds < 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

func closed(ch <-chan struct{}) bool {
	if ch == nil {
		return true
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// sanitizeMediaTarget validates that a locator is safe to pass to mpv.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", fmt.Errorf("empty URL")
	}

	if strings.ContainsAny(l, "\x00\n\r") {
		return "", fmt.Errorf("invalid control characters in URL")
	}

	if strings.HasPrefix(l, "-") {
		return "", fmt.Errorf("url must not start with '-' (looks like a flag)")
	}

	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l, nil
		default:
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
	}

	return filepath.Clean(l), nil
}

// sanitizeTitle flattens a title to one line for mpv.
func sanitizeTitle(title string) string {
	t := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ", "\x00", "").Replace(title)
	return strings.TrimSpace(t)
}
