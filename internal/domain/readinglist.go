package domain

import "strings"

// MaxReadingListBooks caps the books of one prewarm request.
const MaxReadingListBooks = 200

// ReadingList is a named list of books to resolve ahead of time.
type ReadingList struct {
	ID    string      `json:"list_id" validate:"required,max=200"`
	Books []BookQuery `json:"books" validate:"required,min=1,max=200,dive"`
}

// Validate checks the list without the HTTP validator, for queue consumers.
func (l ReadingList) Validate() error {
	if strings.TrimSpace(l.ID) == "" {
		return NewValidationError("list_id", "list id is required")
	}
	if len(l.Books) == 0 {
		return NewValidationError("books", "at least one book is required")
	}
	if len(l.Books) > MaxReadingListBooks {
		return NewValidationError("books", "too many books")
	}
	for _, b := range l.Books {
		if strings.TrimSpace(b.Title) == "" {
			return NewValidationError("books.title", "every book needs a title")
		}
	}
	return nil
}

// PrewarmResult summarizes a prewarm run.
type PrewarmResult struct {
	ListID    string `json:"list_id"`
	Total     int    `json:"total"`
	FullText  int    `json:"full_text"`
	Partial   int    `json:"partial"`
	Generated int    `json:"generated"`
	Failed    int    `json:"failed"`
}
