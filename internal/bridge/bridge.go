// Package bridge adapts the externally rendered preview UI to the mount
// controller. A Mount returns an explicit handle; the UI instance is never
// looked up through the container it lives in.
package bridge

import (
	"context"
)

// Props are the values the preview UI renders from.
type Props struct {
	Markup     string `json:"markup"`
	CSS        string `json:"css"`
	Title      string `json:"title"`
	ThemeID    string `json:"themeId"`
	Generation uint64 `json:"generation"`
}

// Options control how the UI is attached.
type Options struct {
	// Isolation mounts the UI inside its own style scope.
	Isolation bool
}

// Bridge attaches the preview UI to a container.
type Bridge interface {
	Mount(ctx context.Context, container string, props Props, opts Options) (MountHandle, error)
}

// MountHandle controls one mounted UI instance.
type MountHandle interface {
	// Update re-renders the instance with new props.
	Update(ctx context.Context, props Props) error
	// Unmount releases the instance. Safe to call more than once.
	Unmount()
}
