package bridge

import (
	"context"
	"sync"

	"github.com/conneroisu/mdpreview/internal/errors"
	"github.com/conneroisu/mdpreview/internal/logging"
)

// Publisher delivers messages to every connected preview page.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// HubBridge mounts the preview UI on every page connected to a publisher.
// The latest mounted state is kept so pages that connect later can catch up.
type HubBridge struct {
	publisher Publisher
	logger    logging.Logger

	mu     sync.Mutex
	latest *Message
	mounts int
}

// NewHubBridge creates a bridge publishing through p.
func NewHubBridge(p Publisher, logger logging.Logger) *HubBridge {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &HubBridge{publisher: p, logger: logger.WithComponent("bridge")}
}

// Mount implements Bridge.
func (b *HubBridge) Mount(ctx context.Context, container string, props Props, opts Options) (MountHandle, error) {
	if b.publisher == nil {
		return nil, errors.NewMountError(errors.ErrCodeBridgeUnavailable, nil)
	}

	msg := Message{
		Type:      MessageMount,
		Container: container,
		Props:     &props,
		Isolation: opts.Isolation,
	}
	if err := b.publisher.Publish(ctx, msg); err != nil {
		return nil, errors.NewMountError(errors.ErrCodeMountFailed, err)
	}

	b.mu.Lock()
	b.latest = &msg
	b.mounts++
	b.mu.Unlock()

	b.logger.Info(ctx, "Preview mounted", "container", container, "isolation", opts.Isolation, "generation", props.Generation)
	return &hubHandle{bridge: b, container: container, isolation: opts.Isolation}, nil
}

// Latest returns the mount message reflecting the current props, if mounted.
func (b *HubBridge) Latest() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.latest == nil {
		return Message{}, false
	}
	msg := *b.latest
	if msg.Props != nil {
		props := *msg.Props
		msg.Props = &props
	}
	return msg, true
}

// Mounts returns how many times the UI was mounted.
func (b *HubBridge) Mounts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mounts
}

// RecordContent keeps the late-joiner snapshot current after a content patch
// that bypassed the bridge.
func (b *HubBridge) RecordContent(markup string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.latest != nil && b.latest.Props != nil {
		props := *b.latest.Props
		props.Markup = markup
		b.latest.Props = &props
	}
}

// RecordStyle keeps the late-joiner snapshot current after a style patch.
func (b *HubBridge) RecordStyle(css string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.latest != nil && b.latest.Props != nil {
		props := *b.latest.Props
		props.CSS = css
		b.latest.Props = &props
	}
}

type hubHandle struct {
	bridge    *HubBridge
	container string
	isolation bool

	mu       sync.Mutex
	released bool
}

func (h *hubHandle) Update(ctx context.Context, props Props) error {
	h.mu.Lock()
	released := h.released
	h.mu.Unlock()
	if released {
		return errors.NewMountError(errors.ErrCodeUpdateFailed, nil).
			WithContext("reason", "handle released")
	}

	msg := Message{Type: MessageUpdate, Container: h.container, Props: &props}
	if err := h.bridge.publisher.Publish(ctx, msg); err != nil {
		return errors.NewMountError(errors.ErrCodeUpdateFailed, err)
	}

	mounted := Message{Type: MessageMount, Container: h.container, Props: &props, Isolation: h.isolation}
	h.bridge.mu.Lock()
	h.bridge.latest = &mounted
	h.bridge.mu.Unlock()
	return nil
}

func (h *hubHandle) Unmount() {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return
	}
	h.released = true
	h.mu.Unlock()

	h.bridge.mu.Lock()
	h.bridge.latest = nil
	h.bridge.mu.Unlock()

	// Pages that miss the unmount re-sync on their next connect.
	_ = h.bridge.publisher.Publish(context.Background(), Message{Type: MessageUnmount, Container: h.container})
}
