package model

// FillPreview reports how well the edited data covers the template's
// placeholders. Computed per preview request; not persisted. The full
// missing/warning lists are retained even though display truncates them.
type FillPreview struct {
	TotalPlaceholders   int      `json:"total_placeholders"`
	FilledPlaceholders  int      `json:"filled_placeholders"`
	MissingPlaceholders []string `json:"missing_placeholders,omitempty"`
	Warnings            []string `json:"warnings,omitempty"`
	FillPercentage      float64  `json:"fill_percentage"`
	HTMLContent         string   `json:"html_content,omitempty"`
}

// GenerationStats details what the renderer substituted.
type GenerationStats struct {
	PlaceholdersReplaced int      `json:"placeholders_replaced"`
	PlaceholdersMissing  int      `json:"placeholders_missing"`
	MissingList          []string `json:"missing_list,omitempty"`
	ReplacedInBody       int      `json:"replaced_in_body"`
	ReplacedInTables     int      `json:"replaced_in_tables"`
	BoldConversions      int      `json:"bold_conversions"`
}

// GenerationResult is the terminal artifact of the pipeline.
type GenerationResult struct {
	DocumentID  string          `json:"document_id"`
	Filename    string          `json:"filename"`
	DownloadURL string          `json:"download_url"`
	SizeBytes   int64           `json:"size_bytes"`
	Stats       GenerationStats `json:"stats"`
}
