package browser

import "errors"

var (
	// ErrInitialization means the rendering surface could not be created.
	ErrInitialization = errors.New("browser initialization failed")

	// ErrNavigation means a page could not be loaded within the timeout.
	ErrNavigation = errors.New("navigation failed")

	// ErrRender means a loaded page could not be printed or inspected.
	ErrRender = errors.New("render failed")

	// ErrClosed is returned when a closed browser or tab is used.
	ErrClosed = errors.New("browser closed")
)
