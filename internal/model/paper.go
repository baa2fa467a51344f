package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

const (
	PaperSourceUpload = "upload"
	PaperSourceImport = "import"

	// UnknownAuthors is stored until real metadata extraction exists.
	UnknownAuthors = "Unknown"
)

// Paper is created once per successful upload or import and never updated,
// except that deleting its workspace clears WorkspaceID.
type Paper struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	Title            string          `gorm:"size:512;not null;index" json:"title"`
	Authors          string          `gorm:"type:text" json:"authors"`
	Abstract         string          `gorm:"type:text" json:"abstract"`
	Content          string          `gorm:"type:text;not null" json:"-"`
	Embedding        pgvector.Vector `gorm:"type:vector(384);not null" json:"-"`
	OwnerID          uint            `gorm:"not null;index" json:"owner_id"`
	WorkspaceID      *uint           `gorm:"index" json:"workspace_id"`
	Source           string          `gorm:"size:16;not null" json:"source"`
	SourceURL        string          `gorm:"type:text" json:"source_url,omitempty"`
	OriginalFilename string          `gorm:"size:512" json:"original_filename,omitempty"`
	ObjectKey        string          `gorm:"size:512" json:"-"`
	SizeBytes        int64           `json:"size_bytes"`
	Metadata         datatypes.JSON  `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
}

// EmbeddingVector returns the stored embedding as a plain slice.
func (p *Paper) EmbeddingVector() []float32 {
	return p.Embedding.Slice()
}

// SetEmbedding stores vec as the paper's embedding.
func (p *Paper) SetEmbedding(vec []float32) {
	p.Embedding = pgvector.NewVector(vec)
}
