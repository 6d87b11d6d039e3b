package kinegraph

// Contains the ClientUpdater, which publishes the engine's state and events
// to renderers as tagged ZMQ messages.

import (
	"encoding/json"
	"fmt"
	"time"

	zmq "github.com/pebbe/zmq4"
)

// ClientUpdate carries the messages to be published on the status port.
// The state is JSON-encoded unless payload is set, in which case the payload
// bytes are sent as they are.
type ClientUpdate struct {
	tag     string
	state   any
	payload []byte
}

// clientMessageChan is where every part of Kinegraph sends updates for clients.
var clientMessageChan chan ClientUpdate

func init() {
	clientMessageChan = make(chan ClientUpdate, 100)
}

// tickPublishPeriod limits TICK messages to a display frame rate. Only the
// newest TICK in each period is published.
const tickPublishPeriod = 33 * time.Millisecond

// frames returns the tag and body frames of the message.
func (u ClientUpdate) frames() ([]byte, []byte, error) {
	if u.payload != nil {
		return []byte(u.tag), u.payload, nil
	}
	body, err := json.Marshal(u.state)
	if err != nil {
		return nil, nil, err
	}
	return []byte(u.tag), body, nil
}

// RunClientUpdater forwards any message from clientMessageChan to the ZMQ
// publisher socket on portstatus, until abort is closed.
func RunClientUpdater(portstatus int, abort <-chan struct{}) {
	pubSocket, err := zmq.NewSocket(zmq.PUB)
	if err != nil {
		ProblemLogger.Printf("could not create client updater socket: %v", err)
		return
	}
	defer pubSocket.Close()
	hostname := fmt.Sprintf("tcp://*:%d", portstatus)
	if err := pubSocket.Bind(hostname); err != nil {
		ProblemLogger.Printf("could not bind client updater to %s: %v", hostname, err)
		return
	}

	flush := time.NewTicker(tickPublishPeriod)
	defer flush.Stop()
	var pendingTick *ClientUpdate

	publish := func(update ClientUpdate) {
		tag, body, err := update.frames()
		if err != nil {
			ProblemLogger.Printf("could not encode %s update: %v", update.tag, err)
			return
		}
		if _, err := pubSocket.SendMessage(tag, body); err != nil {
			ProblemLogger.Printf("could not publish %s update: %v", update.tag, err)
			return
		}
		if update.tag != "TICK" && update.payload == nil {
			UpdateLogger.Printf("SEND %v %s", update.tag, body)
		}
	}

	for {
		select {
		case <-abort:
			return
		case update := <-clientMessageChan:
			if update.tag == "TICK" {
				pendingTick = &update
				continue
			}
			publish(update)
		case <-flush.C:
			if pendingTick != nil {
				publish(*pendingTick)
				pendingTick = nil
			}
		}
	}
}
