package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "genelit/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries bounds retries on rate limiting, server errors, and
	// transport failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// FetchBackend selects the implementation of the identifier search.
type FetchBackend string

const (
	FetchEUtils FetchBackend = "eutils"
	FetchEntrez FetchBackend = "entrez"
)

// FetchConfig holds settings for the identifier search stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Backend selects eutils (default) or entrez.
	Backend FetchBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// BaseURL is the E-utilities base (default
	// "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Database is the Entrez database searched (default "pubmed").
	Database string `json:"database" yaml:"database" mapstructure:"database"`

	// PageSize is the retmax of each identifier page (default 10000, the
	// E-utilities per-request cap).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// APIKey is an optional NCBI API key that raises the rate limit.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Email is the contact address NCBI asks tools to send.
	Email string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email"`

	// Tool is the registered tool name sent with each request.
	Tool string `json:"tool" yaml:"tool" mapstructure:"tool"`

	// RequestsPerSecond caps the request rate. Zero picks 3, or 10 when
	// APIKey is set.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// TableConfig locates one delimited reference table.
type TableConfig struct {
	// Path is the file path; a ".gz" suffix is decompressed on read.
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// Delimiter is the field separator. Accepts a single character or
	// the names "tab" and "comma".
	Delimiter string `json:"delimiter" yaml:"delimiter" mapstructure:"delimiter"`
}

// MappingConfig describes the article-to-gene table.
type MappingConfig struct {
	TableConfig `yaml:",inline" mapstructure:",squash"`

	// Organism is the tax id rows are restricted to (default "9606").
	Organism string `json:"organism" yaml:"organism" mapstructure:"organism"`

	// OrganismColumn, RecordColumn, and EntityColumn name the header
	// columns (defaults "tax_id", "PubMed_ID", "GeneID").
	OrganismColumn string `json:"organism_column" yaml:"organism_column" mapstructure:"organism_column"`
	RecordColumn   string `json:"record_column" yaml:"record_column" mapstructure:"record_column"`
	EntityColumn   string `json:"entity_column" yaml:"entity_column" mapstructure:"entity_column"`
}

// CrossRefConfig describes the gene identifier cross-reference table.
type CrossRefConfig struct {
	TableConfig `yaml:",inline" mapstructure:",squash"`

	// EntityColumn and SymbolColumn name the header columns
	// (defaults "GeneID", "Symbol").
	EntityColumn string `json:"entity_column" yaml:"entity_column" mapstructure:"entity_column"`
	SymbolColumn string `json:"symbol_column" yaml:"symbol_column" mapstructure:"symbol_column"`
}

// EnrichmentBackend identifies the enrichment implementation.
type EnrichmentBackend string

const (
	EnrichGProfiler EnrichmentBackend = "gprofiler"
	EnrichLocal     EnrichmentBackend = "local"
	EnrichNone      EnrichmentBackend = "none"
)

// EnrichmentConfig holds settings for the enrichment step.
type EnrichmentConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Backend selects gprofiler (default), local, or none.
	Backend EnrichmentBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// BaseURL overrides the g:Profiler endpoint.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Organism is the annotation database identifier (default "hsapiens").
	Organism string `json:"organism" yaml:"organism" mapstructure:"organism"`

	// Ontology selects the GO branch: BP, MF, CC, or ALL (default BP).
	Ontology string `json:"ontology" yaml:"ontology" mapstructure:"ontology"`

	// KeyType names the identifier type of the query: SYMBOL or ENTREZID.
	KeyType string `json:"key_type" yaml:"key_type" mapstructure:"key_type"`

	// GMTPath is the annotation file used by the local backend.
	GMTPath string `json:"gmt_path" yaml:"gmt_path" mapstructure:"gmt_path"`

	// PValueCutoff drops terms whose adjusted p-value is above it (default 0.05).
	PValueCutoff float64 `json:"pvalue_cutoff" yaml:"pvalue_cutoff" mapstructure:"pvalue_cutoff"`

	// ShowCategory is the number of terms drawn in the dot plot (default 10).
	ShowCategory int `json:"show_category" yaml:"show_category" mapstructure:"show_category"`
}

// SummaryFormat selects the encoding of the run summary.
type SummaryFormat string

const (
	SummaryYAML SummaryFormat = "yaml"
	SummaryJSON SummaryFormat = "json"
)

// ReportConfig holds settings for ranking and report artifacts.
type ReportConfig struct {
	// TopN is the number of entries drawn in each frequency chart (default 9).
	TopN int `json:"top_n" yaml:"top_n" mapstructure:"top_n"`

	// EnrichTop is the number of top symbols sent to enrichment (default 100).
	EnrichTop int `json:"enrich_top" yaml:"enrich_top" mapstructure:"enrich_top"`

	// OutDir receives chart images and the summary file.
	OutDir string `json:"out_dir" yaml:"out_dir" mapstructure:"out_dir"`

	// ImageFormat is the chart file extension: png, svg, or pdf (default png).
	ImageFormat string `json:"image_format" yaml:"image_format" mapstructure:"image_format"`

	// Format selects the summary encoding: yaml or json.
	Format SummaryFormat `json:"format" yaml:"format" mapstructure:"format"`

	// DBPath, when set, records the run in a SQLite report database.
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty" mapstructure:"db_path"`

	// MaxUnmapped is the largest tolerated fraction of mapping rows with
	// no symbol before the join is rejected (default 0.5; 1 disables).
	MaxUnmapped float64 `json:"max_unmapped" yaml:"max_unmapped" mapstructure:"max_unmapped"`
}

// PipelineConfig groups all stage configurations for one run.
type PipelineConfig struct {
	// Term is the free-text literature search term.
	Term string `json:"term" yaml:"term" mapstructure:"term"`

	Fetch      FetchConfig      `json:"fetch" yaml:"fetch" mapstructure:"fetch"`
	Mapping    MappingConfig    `json:"mapping" yaml:"mapping" mapstructure:"mapping"`
	CrossRef   CrossRefConfig   `json:"crossref" yaml:"crossref" mapstructure:"crossref"`
	Enrichment EnrichmentConfig `json:"enrichment" yaml:"enrichment" mapstructure:"enrichment"`
	Report     ReportConfig     `json:"report" yaml:"report" mapstructure:"report"`
}
