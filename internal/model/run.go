package model

import "time"

// Run records one completed compute pass.
type Run struct {
	ID             string     `json:"id" yaml:"id"`
	Species        string     `json:"species" yaml:"species"`
	InputPath      string     `json:"input_path" yaml:"input_path"`
	OutputPath     string     `json:"output_path" yaml:"output_path"`
	Columns        []string   `json:"columns" yaml:"columns"`
	RecordsRead    int        `json:"records_read" yaml:"records_read"`
	RecordsWritten int        `json:"records_written" yaml:"records_written"`
	Dropped        int        `json:"dropped" yaml:"dropped"`
	Workers        int        `json:"workers" yaml:"workers"`
	CatalogVersion string     `json:"catalog_version,omitempty" yaml:"catalog_version,omitempty"`
	StartedAt      time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt     time.Time  `json:"finished_at" yaml:"finished_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" yaml:"deleted_at,omitempty"`
	ValueCount     int        `json:"values,omitempty" yaml:"values,omitempty"`
}

// Value is one computed field group of one record, as written to the output.
type Value struct {
	RunID       string  `json:"run_id" yaml:"run_id"`
	Seq         int     `json:"seq" yaml:"seq"`
	Line        int     `json:"line" yaml:"line"`
	Quantity    string  `json:"quantity" yaml:"quantity"`
	Text        string  `json:"text" yaml:"text"`
	Number      float64 `json:"number" yaml:"number"`
	Uncertainty int     `json:"uncertainty" yaml:"uncertainty"`
	Reference   string  `json:"reference" yaml:"reference"`
}
