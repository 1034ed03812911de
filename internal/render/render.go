// Package render hands composed series to a drawing surface and owns the
// resulting chart handles.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poku-e/shootingboard/internal/chartset"
)

// ErrNoData is returned when every point of every series is a gap.
var ErrNoData = errors.New("chart has no data points")

// Spec is everything a surface needs to draw one line chart.
type Spec struct {
	Title  string            `json:"title"`
	XTitle string            `json:"x_title,omitempty"`
	YTitle string            `json:"y_title,omitempty"`
	Labels []string          `json:"labels"`
	Series []chartset.Series `json:"series"`
	Width  int               `json:"width,omitempty"`
	Height int               `json:"height,omitempty"`
}

// Handle is a rendered chart. Release frees it; releasing twice is a no-op.
type Handle interface {
	ID() string
	Release() error
}

// Surface draws specs.
type Surface interface {
	Render(ctx context.Context, spec Spec) (Handle, error)
}

// Owner holds at most one live handle for a chart slot. Each Render releases
// the previous handle before asking the surface for a new one.
type Owner struct {
	surface Surface
	current Handle
}

// NewOwner returns an owner drawing on s. A nil s makes every Render a
// no-op.
func NewOwner(s Surface) *Owner {
	return &Owner{surface: s}
}

// Render replaces the current chart with one drawn from spec. With no
// surface it returns (nil, nil).
func (o *Owner) Render(ctx context.Context, spec Spec) (Handle, error) {
	if o == nil || o.surface == nil {
		return nil, nil
	}
	if err := o.Release(); err != nil {
		return nil, err
	}
	h, err := o.surface.Render(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("render %q: %w", spec.Title, err)
	}
	o.current = h
	slog.Debug("chart rendered", "title", spec.Title, "series", len(spec.Series), "handle", h.ID())
	return h, nil
}

// Current returns the live handle, or nil.
func (o *Owner) Current() Handle {
	if o == nil {
		return nil
	}
	return o.current
}

// Release frees the live handle, if any.
func (o *Owner) Release() error {
	if o == nil || o.current == nil {
		return nil
	}
	h := o.current
	o.current = nil
	if err := h.Release(); err != nil {
		return fmt.Errorf("release chart %s: %w", h.ID(), err)
	}
	return nil
}
