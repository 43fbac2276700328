package transport

import (
	"context"
	"time"

	"github.com/google/gousb"
)

const watchInterval = 2 * time.Second

// watcher polls the bus and reports removals of devices the transport has
// opened. It only ever notifies; reconnection is someone else's decision.
type watcher struct {
	transport *USBTransport
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

func newWatcher(t *USBTransport) *watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &watcher{
		transport: t,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func (w *watcher) start() {
	go func() {
		defer close(w.done)

		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.sweep()
			}
		}
	}()
}

func (w *watcher) stop() {
	w.cancel()
	<-w.done
}

// sweep enumerates without opening anything (the filter rejects every device
// after recording it) and fires disconnect callbacks for tracked devices
// that vanished.
func (w *watcher) sweep() {
	present := make(map[string]bool)
	_, _ = w.transport.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		id := Identity{
			VendorID:  uint16(desc.Vendor),
			ProductID: uint16(desc.Product),
			Bus:       desc.Bus,
			Address:   desc.Address,
		}
		present[id.Key()] = true
		return false
	})

	w.transport.mu.Lock()
	var removed []Identity
	for key, id := range w.transport.opened {
		if !present[key] {
			removed = append(removed, id)
			delete(w.transport.opened, key)
		}
	}
	w.transport.mu.Unlock()

	for _, id := range removed {
		w.transport.notifyDisconnect(id)
	}
}
