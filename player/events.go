package player

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/opentube/opentube/log"
)

// mpvEvent is one asynchronous message from mpv.
type mpvEvent struct {
	Event     string `json:"event"`
	Name      string `json:"name"`
	Data      any    `json:"data"`
	Reason    string `json:"reason"`
	FileError string `json:"file_error"`
}

// observed lists the properties the listener subscribes to, by observer id.
var observed = []struct {
	id   int
	name string
}{
	{1, "pause"},
}

// eventListener holds a persistent IPC connection and forwards mpv events.
// Property observers are bound to the connection that registered them, so
// they are sent on the listener's own connection.
type eventListener struct {
	conn     net.Conn
	callback func(mpvEvent)
	done     chan struct{}
	once     sync.Once
}

// listen connects to socketPath, registers the observers and starts reading.
func listen(socketPath string, callback func(mpvEvent)) (*eventListener, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("event listener connect: %w", err)
	}

	for _, prop := range observed {
		payload, err := json.Marshal(ipcCommand{Command: []any{"observe_property", prop.id, prop.name}})
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("marshal observe %s: %w", prop.name, err)
		}
		if _, err := conn.Write(append(payload, '\n')); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("observe %s: %w", prop.name, err)
		}
	}

	el := &eventListener{
		conn:     conn,
		callback: callback,
		done:     make(chan struct{}),
	}
	go el.readLoop()

	log.Infof("mpv event listener started on %s", socketPath)
	return el, nil
}

// Stop closes the connection, which ends the read loop.
func (el *eventListener) Stop() {
	el.once.Do(func() {
		_ = el.conn.Close()
	})
	<-el.done
}

func (el *eventListener) readLoop() {
	defer close(el.done)

	reader := bufio.NewReaderSize(el.conn, readBufSize)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Debugf("mpv event listener stopped: %s", err)
			}
			return
		}

		evt, ok := parseEvent(line)
		if ok {
			el.callback(evt)
		}
	}
}

// parseEvent decodes an event line. Command replies and garbage are skipped.
func parseEvent(line []byte) (mpvEvent, bool) {
	var evt mpvEvent
	if err := json.Unmarshal(line, &evt); err != nil {
		return mpvEvent{}, false
	}
	return evt, evt.Event != ""
}
