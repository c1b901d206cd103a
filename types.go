package main

// FileRecord is a candidate file found during traversal.
type FileRecord struct {
	Path      string
	Extension string // Text after the last '.' in the base name, "" if none
}

// FileStats holds the counts contributed by one file, or the sum over many.
type FileStats struct {
	Tokens int64 `json:"tokens" yaml:"tokens"`
	Lines  int64 `json:"lines" yaml:"lines"`
	Files  int64 `json:"files" yaml:"files"`
}

// Plus returns the field-wise sum of s and o.
func (s FileStats) Plus(o FileStats) FileStats {
	return FileStats{
		Tokens: s.Tokens + o.Tokens,
		Lines:  s.Lines + o.Lines,
		Files:  s.Files + o.Files,
	}
}

// failedFile is what a file that could not be read or tokenized contributes:
// it is counted as present, with no tokens or lines.
var failedFile = FileStats{Files: 1}

// Aggregate maps an extension to the accumulated stats of its files.
type Aggregate map[string]FileStats
