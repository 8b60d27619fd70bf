package persistence

// Meta is the JSONL cache file's first line: the header record every
// Serializer.Save writes before any node/edge/symbol record, and the only
// record Serializer.Load validates before streaming the rest.
type Meta struct {
	RecordType  string `json:"record_type"`
	Version     string `json:"version"`
	Timestamp   int64  `json:"timestamp"`
	ProjectRoot string `json:"project_root"`
	CommitHash  string `json:"commit_hash"`
	FilePath    string `json:"file_path,omitempty"`
}

// MetaOptions carries the fields Save needs beyond the graph itself.
type MetaOptions struct {
	ProjectRoot string
	CommitHash  string
	FilePath    string
	Timestamp   int64
}
