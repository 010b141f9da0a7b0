package catalog

// Script is the top-level container, analogous to a document. Sentences are
// keyed by id; clients index into the map rather than iterating an array.
type Script struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Sentences map[string]*Sentence `json:"sentences"`
}

// Sentence is an ordered unit of content within a script. MainImageID is a
// soft reference maintained by the image write paths: when non-nil it always
// points at an image currently belonging to this sentence.
type Sentence struct {
	ID          string            `json:"id"`
	ScriptID    string            `json:"script_id"`
	Text        string            `json:"text"`
	MainImageID *string           `json:"main_image_id"`
	Images      map[string]*Image `json:"images"`
}

// Image is an uploaded binary asset associated with one sentence. Filename is
// the generated name under which the asset store holds the bytes.
type Image struct {
	ID         string `json:"id"`
	SentenceID string `json:"sentence_id"`
	Filename   string `json:"filename"`
}

// ScriptStats summarizes one script for operator tooling.
type ScriptStats struct {
	ID        string
	Name      string
	Sentences int
	Images    int
}

// DatabaseHealth captures diagnostic information about the catalog database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TablesPresent    []string
	MissingTables    []string
	IntegrityCheck   bool
	Scripts          int
	Sentences        int
	Images           int
	Error            string
}
