package workflow

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/heimdex/heimdex-trim/internal/picker"
)

var (
	ErrTitleRequired       = errors.New("title is required")
	ErrDescriptionRequired = errors.New("description is required")
)

// Session is one trim session over a single source video. It replaces any
// process-wide "current video" state: callers create it and hand it to Load.
type Session struct {
	ID          string       `json:"id"`
	Video       picker.Asset `json:"video"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
}

// NewSession validates the title and description and assigns an ID.
func NewSession(video picker.Asset, title, description string) (*Session, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if description == "" {
		return nil, ErrDescriptionRequired
	}
	return &Session{
		ID:          uuid.NewString(),
		Video:       video,
		Title:       title,
		Description: description,
	}, nil
}
