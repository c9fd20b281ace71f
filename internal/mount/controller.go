// Package mount owns the lifecycle of the preview surface: it decides
// whether a render result needs a full mount, a prop update through the UI
// bridge, or only a content patch.
package mount

import (
	"context"
	"errors"
	"sync"

	"github.com/conneroisu/mdpreview/internal/bridge"
	mderrors "github.com/conneroisu/mdpreview/internal/errors"
	"github.com/conneroisu/mdpreview/internal/logging"
)

// ErrDropped is returned when a call overlaps an in-flight update or arrives
// before the minimum interval has passed.
var ErrDropped = errors.New("update dropped: another update is in flight or too recent")

// State is the lifecycle state of the preview surface.
type State int

const (
	StateUnmounted State = iota
	StateMounting
	StateMounted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnmounted:
		return "unmounted"
	case StateMounting:
		return "mounting"
	case StateMounted:
		return "mounted"
	default:
		return "unknown"
	}
}

// Outcome describes what EnsureRendered did.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeMounted
	OutcomeUpdated
	OutcomePatched
	OutcomeRestyled
	OutcomeUnchanged
	OutcomeBusy
	OutcomeStale
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeMounted:
		return "mounted"
	case OutcomeUpdated:
		return "updated"
	case OutcomePatched:
		return "patched"
	case OutcomeRestyled:
		return "restyled"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeBusy:
		return "busy"
	case OutcomeStale:
		return "stale"
	default:
		return "none"
	}
}

// Artifact is a render result ready for display.
type Artifact struct {
	Markup  string
	CSS     string
	Title   string
	ThemeID string
}

// sameFrame reports whether only the markup differs between two artifacts.
func (a Artifact) sameFrame(b Artifact) bool {
	return a.CSS == b.CSS && a.Title == b.Title && a.ThemeID == b.ThemeID
}

// onlyStyle reports whether the stylesheet is the only difference.
func (a Artifact) onlyStyle(b Artifact) bool {
	return a.Markup == b.Markup && a.Title == b.Title && a.ThemeID == b.ThemeID && a.CSS != b.CSS
}

// PatchChannel applies content-only and style-only updates to a registered
// surface.
type PatchChannel interface {
	HasTarget() bool
	PatchContent(ctx context.Context, markup string) (float64, error)
	PatchStyle(ctx context.Context, css string) error
}

// Diagnostics shows a failure in place of the preview content.
type Diagnostics interface {
	ShowDiagnostic(ctx context.Context, err error)
}

// DefaultContainer is the id of the page element the preview mounts into.
const DefaultContainer = "mdpreview-root"

// Config holds the controller's collaborators.
type Config struct {
	Bridge      bridge.Bridge
	Patch       PatchChannel
	Diagnostics Diagnostics
	Guard       *Guard
	Container   string
	Options     bridge.Options
	Logger      logging.Logger
}

// Controller is the mount state machine.
type Controller struct {
	bridge      bridge.Bridge
	patch       PatchChannel
	diagnostics Diagnostics
	guard       *Guard
	container   string
	options     bridge.Options
	logger      logging.Logger

	mu         sync.Mutex
	state      State
	handle     bridge.MountHandle
	generation uint64
	displayed  Artifact
}

// NewController creates a controller in the Unmounted state.
func NewController(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	guard := cfg.Guard
	if guard == nil {
		guard = NewGuard(0)
	}
	container := cfg.Container
	if container == "" {
		container = DefaultContainer
	}
	return &Controller{
		bridge:      cfg.Bridge,
		patch:       cfg.Patch,
		diagnostics: cfg.Diagnostics,
		guard:       guard,
		container:   container,
		options:     cfg.Options,
		logger:      logger.WithComponent("mount"),
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Generation returns the number of accepted calls so far.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Displayed returns the artifact last shown on the surface.
func (c *Controller) Displayed() Artifact {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayed
}

// EnsureRendered brings the surface up to date with a.
//
// Unmounted mounts through the bridge; Mounting is a no-op; Mounted patches
// content when only the markup changed and a patch target is registered,
// otherwise updates the mounted instance's props. Overlapping or too-soon
// calls return ErrDropped.
func (c *Controller) EnsureRendered(ctx context.Context, a Artifact) (Outcome, error) {
	c.mu.Lock()
	if c.state == StateMounting {
		c.mu.Unlock()
		return OutcomeBusy, nil
	}
	c.mu.Unlock()

	if !c.guard.TryAcquire() {
		return OutcomeNone, ErrDropped
	}
	defer c.guard.Release()

	c.mu.Lock()
	c.generation++
	gen := c.generation
	state := c.state
	handle := c.handle
	displayed := c.displayed
	if state == StateUnmounted {
		c.state = StateMounting
	}
	c.mu.Unlock()

	switch state {
	case StateUnmounted:
		return c.mount(ctx, gen, a)
	case StateMounted:
		return c.refresh(ctx, gen, handle, displayed, a)
	default:
		return OutcomeBusy, nil
	}
}

func (c *Controller) props(gen uint64, a Artifact) bridge.Props {
	return bridge.Props{
		Markup:     a.Markup,
		CSS:        a.CSS,
		Title:      a.Title,
		ThemeID:    a.ThemeID,
		Generation: gen,
	}
}

func (c *Controller) mount(ctx context.Context, gen uint64, a Artifact) (Outcome, error) {
	var (
		handle bridge.MountHandle
		err    error
	)
	if c.bridge == nil {
		err = mderrors.NewMountError(mderrors.ErrCodeBridgeUnavailable, nil)
	} else {
		handle, err = c.bridge.Mount(ctx, c.container, c.props(gen, a), c.options)
	}

	c.mu.Lock()
	if gen != c.generation {
		// Unmounted while the bridge was working.
		c.mu.Unlock()
		if handle != nil {
			handle.Unmount()
		}
		c.logger.Debug(ctx, "Discarding stale mount result", "generation", gen)
		return OutcomeStale, nil
	}
	if err != nil {
		c.state = StateUnmounted
		c.handle = nil
		c.displayed = Artifact{}
		c.mu.Unlock()
		return OutcomeNone, c.fail(ctx, err)
	}
	c.state = StateMounted
	c.handle = handle
	c.displayed = a
	c.mu.Unlock()

	return OutcomeMounted, nil
}

func (c *Controller) refresh(ctx context.Context, gen uint64, handle bridge.MountHandle, displayed, a Artifact) (Outcome, error) {
	if a == displayed {
		return OutcomeUnchanged, nil
	}

	if c.patch != nil && c.patch.HasTarget() {
		switch {
		case a.sameFrame(displayed):
			_, err := c.patch.PatchContent(ctx, a.Markup)
			if err == nil {
				return c.commit(ctx, gen, a, OutcomePatched)
			}
			c.logger.Warn(ctx, err, "Content patch failed; updating through bridge")
		case a.onlyStyle(displayed):
			err := c.patch.PatchStyle(ctx, a.CSS)
			if err == nil {
				return c.commit(ctx, gen, a, OutcomeRestyled)
			}
			c.logger.Warn(ctx, err, "Style patch failed; updating through bridge")
		}
	}

	if err := handle.Update(ctx, c.props(gen, a)); err != nil {
		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			return OutcomeStale, nil
		}
		c.state = StateUnmounted
		c.handle = nil
		c.displayed = Artifact{}
		c.mu.Unlock()

		handle.Unmount()
		return OutcomeNone, c.fail(ctx, err)
	}
	return c.commit(ctx, gen, a, OutcomeUpdated)
}

func (c *Controller) commit(ctx context.Context, gen uint64, a Artifact, outcome Outcome) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.logger.Debug(ctx, "Discarding stale update result", "generation", gen)
		return OutcomeStale, nil
	}
	c.displayed = a
	return outcome, nil
}

func (c *Controller) fail(ctx context.Context, err error) error {
	if !mderrors.IsMountError(err) {
		err = mderrors.NewMountError(mderrors.ErrCodeMountFailed, err)
	}
	if c.diagnostics != nil {
		c.diagnostics.ShowDiagnostic(ctx, err)
	}
	return err
}

// Unmount releases the mounted instance and returns to Unmounted. Any
// bridge call still in flight has its result discarded.
func (c *Controller) Unmount() {
	c.mu.Lock()
	c.generation++
	handle := c.handle
	c.handle = nil
	c.state = StateUnmounted
	c.displayed = Artifact{}
	c.mu.Unlock()

	if handle != nil {
		handle.Unmount()
	}
}
