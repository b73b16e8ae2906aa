package post

import (
	"fmt"
	"strings"
)

// ValidationError is returned for requests that are rejected before any
// storage access happens.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// CreateRequest carries the attributes of a post to be created.
type CreateRequest struct {
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Owner    *string `json:"owner"`
	ImageURL *string `json:"imageUrl"`
}

// Validate requires a title and a content that are not blank.
func (req CreateRequest) Validate() error {
	if blank(req.Title) || blank(req.Content) {
		return invalid("Title and content are required")
	}
	return nil
}

// EditRequest carries a partial update. A nil field was omitted by the client
// and keeps its previous value. A non-nil empty ImageURL clears the image; a
// non-nil empty Title or Content is rejected, as both are required.
type EditRequest struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	ImageURL *string `json:"imageUrl"`
}

// Validate requires at least one field and rejects blank required fields.
func (req EditRequest) Validate() error {
	if req.Title == nil && req.Content == nil && req.ImageURL == nil {
		return invalid("At least one field must be provided to update.")
	}
	if req.Title != nil && blank(*req.Title) {
		return invalid("Title cannot be empty")
	}
	if req.Content != nil && blank(*req.Content) {
		return invalid("Content cannot be empty")
	}
	return nil
}

// Apply replaces the supplied fields of p. The id and creation time are
// never modified.
func (req EditRequest) Apply(p *Post) {
	if req.Title != nil {
		p.Title = *req.Title
	}
	if req.Content != nil {
		p.Content = *req.Content
	}
	if req.ImageURL != nil {
		p.ImageURL = nonEmpty(req.ImageURL)
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
