// Package document manages the support knowledge base: CRUD, keyword search
// and summaries.
package document

import "time"

// Document is a knowledge base entry.
type Document struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Title     string    `gorm:"size:150;not null;index" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Source    *string   `gorm:"size:100" json:"source"`
	CreatedAt time.Time `gorm:"autoCreateTime:false;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Document) TableName() string { return "documents" }

// CreateRequest is the body of a document create.
type CreateRequest struct {
	Title   string  `json:"title" validate:"required,min=3,max=150"`
	Content *string `json:"content" validate:"required"`
	Source  *string `json:"source" validate:"omitnil,max=100"`
}

// UpdateRequest carries the fields to change. Nil fields are left untouched.
type UpdateRequest struct {
	Title   *string `json:"title" validate:"omitnil,min=3,max=150"`
	Content *string `json:"content"`
	Source  *string `json:"source" validate:"omitnil,max=100"`
}

// ListRequest pages through documents, newest first.
type ListRequest struct {
	Skip  int `form:"skip" json:"skip" validate:"gte=0"`
	Limit int `form:"limit" json:"limit" validate:"gte=1,lte=100"`
}

const (
	DefaultListLimit = 10
	DefaultTopK      = 5
	snippetLength    = 150
)

// SearchRequest is a keyword search query.
type SearchRequest struct {
	Query string `json:"query" validate:"required"`
	TopK  *int   `json:"top_k" validate:"omitnil,min=1,max=20"`
}

// SearchResult is one matching document.
type SearchResult struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	ContentSnippet string    `json:"content_snippet"`
	Source         *string   `json:"source"`
	Score          float64   `json:"score"`
	RetrievedAt    time.Time `json:"retrieved_at"`
}

// SearchResponse holds the ranked results of a search.
type SearchResponse struct {
	QueryReceived string         `json:"query_received"`
	Results       []SearchResult `json:"results"`
}
