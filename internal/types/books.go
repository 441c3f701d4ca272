package types

import (
	"time"

	"github.com/google/uuid"
)

// Book is a row of the book table. Nil pointers are NULL columns.
type Book struct {
	Id                      int64     `json:"id"`
	UserId                  uuid.UUID `json:"user_id"`
	Title                   string    `json:"title"`
	OriginalTitle           *string   `json:"original_title"`
	Isbn10                  *string   `json:"isbn10"`
	Isbn13                  *string   `json:"isbn13"`
	PublicationYear         *int32    `json:"publication_year"`
	OriginalPublicationYear *int32    `json:"original_publication_year"`
	NumPages                *int32    `json:"num_pages"`
	Notes                   *string   `json:"notes"`
	LanguageId              *int64    `json:"language_id"`
	OriginalLanguageId      *int64    `json:"original_language_id"`
	LibraryLocationId       *int64    `json:"library_location_id"`
	StatusId                *int64    `json:"status_id"`
	PublisherId             *int64    `json:"publisher_id"`
	TypeId                  *int64    `json:"type_id"`
	GroupId                 *int64    `json:"group_id"`
	TranslatorId            *int64    `json:"translator_id"`
	DateAdded               time.Time `json:"date_added"`
}

// BookView is a row of book_full_view: a book with its references resolved to names.
// Creators and Labels are comma separated.
type BookView struct {
	Id                      int64     `json:"id"`
	Title                   string    `json:"title"`
	OriginalTitle           *string   `json:"original_title"`
	Creators                *string   `json:"creators"`
	Isbn10                  *string   `json:"isbn10"`
	Isbn13                  *string   `json:"isbn13"`
	Publisher               *string   `json:"publisher"`
	Country                 *string   `json:"country"`
	Language                *string   `json:"language"`
	OriginalLanguage        *string   `json:"original_language"`
	Type                    *string   `json:"type"`
	Group                   *string   `json:"group"`
	Translator              *string   `json:"translator"`
	Labels                  *string   `json:"labels"`
	Status                  *string   `json:"status"`
	Library                 *string   `json:"library"`
	PublicationYear         *int32    `json:"publication_year"`
	OriginalPublicationYear *int32    `json:"original_publication_year"`
	NumPages                *int32    `json:"num_pages"`
	Notes                   *string   `json:"notes"`
	DateAdded               time.Time `json:"date_added"`
}

// Reference is a row of any name-keyed lookup table.
type Reference struct {
	Id        int64  `json:"id"`
	Name      string `json:"name"`
	CountryId *int64 `json:"country_id,omitempty"`
}

type AuthorStats struct {
	Id           int64     `json:"id"`
	Name         string    `json:"name"`
	Country      *string   `json:"country"`
	Continent    *string   `json:"continent"`
	Books        int64     `json:"books"`
	Translations int64     `json:"translations"`
	IsAuthor     bool      `json:"is_author"`
	IsTranslator bool      `json:"is_translator"`
	CreatedAt    time.Time `json:"created_at"`
}

type PublisherStats struct {
	Id      int64   `json:"id"`
	Name    string  `json:"name"`
	Country *string `json:"country"`
	Books   int64   `json:"books"`
}

type CountryStats struct {
	Id              int64    `json:"id"`
	Name            string   `json:"name"`
	Continent       *string  `json:"continent"`
	AltGroup        *string  `json:"alt_group"`
	Status          *string  `json:"status"`
	Books           int64    `json:"books"`
	Authors         int64    `json:"authors"`
	PopulationShare *float64 `json:"population_share"`
}

type ContinentStats struct {
	Continent     string  `json:"continent"`
	Countries     int64   `json:"countries"`
	CountriesRead int64   `json:"countries_read"`
	Percentage    float64 `json:"percentage"`
}
