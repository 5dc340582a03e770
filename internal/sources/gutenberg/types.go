package gutenberg

// SearchResponse is the Gutendex /books response.
type SearchResponse struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []Book  `json:"results"`
}

// Book is a single Gutendex book record.
type Book struct {
	ID            int               `json:"id"`
	Title         string            `json:"title"`
	Authors       []Person          `json:"authors"`
	Translators   []Person          `json:"translators"`
	Subjects      []string          `json:"subjects"`
	Bookshelves   []string          `json:"bookshelves"`
	Languages     []string          `json:"languages"`
	Summaries     []string          `json:"summaries"`
	Copyright     *bool             `json:"copyright"`
	MediaType     string            `json:"media_type"`
	Formats       map[string]string `json:"formats"`
	DownloadCount int               `json:"download_count"`
}

// Person is an author or translator.
type Person struct {
	Name      string `json:"name"`
	BirthYear *int   `json:"birth_year"`
	DeathYear *int   `json:"death_year"`
}

// IsPublicDomain reports whether the book is free of copyright in the US.
// Gutendex reports null when unknown; that is treated as public domain since
// the catalog only distributes such works.
func (b *Book) IsPublicDomain() bool {
	return b.Copyright == nil || !*b.Copyright
}
