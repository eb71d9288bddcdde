package push

import (
	"os"
	"sync"

	"farmlink/internal/domain/service"
)

// dispatcher fans inbound notifications out to subscribers. Cancellation of a
// subscription is idempotent.
type dispatcher struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]handlerPair
}

type handlerPair struct {
	onReceive      service.ReceiveHandler
	onUserResponse service.ReceiveHandler
}

func newDispatcher() *dispatcher {
	return &dispatcher{subs: make(map[int]handlerPair)}
}

func (d *dispatcher) subscribe(onReceive, onUserResponse service.ReceiveHandler) service.CancelFunc {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	d.subs[id] = handlerPair{onReceive: onReceive, onUserResponse: onUserResponse}

	var once sync.Once

	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			delete(d.subs, id)
		})
	}
}

func (d *dispatcher) deliver(n service.InboundNotification) {
	for _, pair := range d.snapshot() {
		if pair.onReceive != nil {
			pair.onReceive(n)
		}
	}
}

func (d *dispatcher) deliverResponse(n service.InboundNotification) {
	for _, pair := range d.snapshot() {
		if pair.onUserResponse != nil {
			pair.onUserResponse(n)
		}
	}
}

func (d *dispatcher) snapshot() []handlerPair {
	d.mu.Lock()
	defer d.mu.Unlock()

	pairs := make([]handlerPair, 0, len(d.subs))
	for _, pair := range d.subs {
		pairs = append(pairs, pair)
	}

	return pairs
}

// permissionGate tracks the notification-permission state. There is no OS
// dialog on this runtime; a request always grants, and repeated requests
// after a grant return granted without prompting.
type permissionGate struct {
	mu      sync.Mutex
	granted bool
}

func (g *permissionGate) query() service.PermissionStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	return service.PermissionStatus{Granted: g.granted, CanAskAgain: !g.granted}
}

func (g *permissionGate) request() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.granted = true

	return true
}

// installationID is the stable device identifier forwarded to the backend.
func installationID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "unknown"
	}

	return hostname
}
