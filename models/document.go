package models

// Metadata keys stamped by the document loader. PDF-derived documents carry
// all of them when the source file provides the information; plain text
// documents only carry the uploaded filename.
const (
	MetaUploadedFilename = "uploaded_filename"
	MetaTitle            = "title"
	MetaAuthor           = "author"
	MetaPageNumber       = "page_number"
	MetaTotalPages       = "total_pages"
)

// Document is one loaded unit of uploaded content. A chunk is itself a
// Document whose content is a bounded slice of its parent's content with the
// parent metadata copied over unchanged.
type Document struct {
	Content  string            `json:"content" bson:"content"`
	Metadata map[string]string `json:"metadata" bson:"metadata"`
	SourceID string            `json:"source_id" bson:"source_id"`
}

// CloneMetadata returns a copy of the document's metadata map so derived
// chunks never alias the parent's map.
func (d Document) CloneMetadata() map[string]string {
	out := make(map[string]string, len(d.Metadata))
	for k, v := range d.Metadata {
		out[k] = v
	}
	return out
}

// RetrievalResult pairs a retrieved chunk with its similarity distance.
// Lower distance means a closer match. Results are transient and never
// persisted.
type RetrievalResult struct {
	Chunk    Document `json:"chunk"`
	Distance float64  `json:"distance"`
}
