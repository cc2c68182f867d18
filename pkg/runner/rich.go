package runner

import (
	"errors"
	"fmt"

	"github.com/aretw0/stepview"
	"github.com/aretw0/stepview/pkg/domain"
	"github.com/aretw0/stepview/pkg/render"
)

// ErrUnknownAction is returned by Act for names that are not playback actions.
var ErrUnknownAction = errors.New("unknown playback action")

// RichResponse combines the view and the source for rich clients (Web, MCP, etc).
type RichResponse struct {
	Screen   render.Screen   `json:"screen"`
	Source   string          `json:"source"`
	Language domain.Language `json:"language"`
}

// Render captures the current view of wb.
func Render(wb *stepview.Workbench) *RichResponse {
	return &RichResponse{
		Screen:   wb.Screen(),
		Source:   wb.Editor().Text(),
		Language: wb.Editor().Language(),
	}
}

// Act applies a named playback action and immediately renders the result.
// cursor is only used by "seek" and is 0-based.
// This ensures that rich clients always receive the view they just moved to.
func Act(wb *stepview.Workbench, name string, cursor int) (*RichResponse, error) {
	if domain.Action(name) == domain.ActionSeek {
		wb.Seek(cursor)
		return Render(wb), nil
	}

	action, ok := domain.ParseAction(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	wb.Do(action)
	return Render(wb), nil
}
