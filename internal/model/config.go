package model

import "time"

// Config is the complete platescan configuration. Everything the pipeline
// needs is passed in explicitly; there is no package-level state.
type Config struct {
	Extract     ExtractConfig     `yaml:"extract" mapstructure:"extract"`
	Cluster     ClusterConfig     `yaml:"cluster" mapstructure:"cluster"`
	Match       MatchConfig       `yaml:"match" mapstructure:"match"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Embedding   EmbeddingConfig   `yaml:"embedding" mapstructure:"embedding"`
	Search      SearchConfig      `yaml:"search" mapstructure:"search"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
}

// ExtractConfig controls the layout extractor.
type ExtractConfig struct {
	// Pattern is the identifier regular expression.
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
	// AllMatches keeps every non-overlapping identifier in a text block
	// instead of only the first.
	AllMatches bool `yaml:"all_matches" mapstructure:"all_matches"`
	// PlacementTolerance is the per-axis tolerance, in page points, when
	// matching an image block's top-left corner to an enumerated placement.
	PlacementTolerance float64 `yaml:"placement_tolerance" mapstructure:"placement_tolerance"`
}

// ClusterConfig controls column clustering.
type ClusterConfig struct {
	Columns       int   `yaml:"columns" mapstructure:"columns"`
	Seed          int64 `yaml:"seed" mapstructure:"seed"`
	MaxIterations int   `yaml:"max_iterations" mapstructure:"max_iterations"`
}

// MatchConfig selects and tunes the association policy.
type MatchConfig struct {
	// Policy is "column" (cluster + nearest-below tie-break) or "band"
	// (horizontal tolerance band, no clustering).
	Policy string `yaml:"policy" mapstructure:"policy"`
	// HorizontalTolerance widens the image's horizontal extent for the band
	// policy, in page points.
	HorizontalTolerance float64 `yaml:"horizontal_tolerance" mapstructure:"horizontal_tolerance"`
	// VerticalTolerance shifts the image's bottom edge for the band policy;
	// a small negative value allows slight vertical overlap.
	VerticalTolerance float64 `yaml:"vertical_tolerance" mapstructure:"vertical_tolerance"`
}

// OutputConfig controls where and how results are written.
type OutputConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`
	ImagesDir   string `yaml:"images_dir" mapstructure:"images_dir"`
	MappingFile string `yaml:"mapping_file" mapstructure:"mapping_file"`
	// ChunkSize is the number of pages processed between mapping checkpoints.
	ChunkSize int  `yaml:"chunk_size" mapstructure:"chunk_size"`
	Verbose   bool `yaml:"verbose" mapstructure:"verbose"`
}

// EmbeddingConfig configures the vector provider for the embed stage.
type EmbeddingConfig struct {
	// Provider is "openai" or "pixel".
	Provider   string `yaml:"provider" mapstructure:"provider"`
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"-" mapstructure:"-"` // from OPENAI_API_KEY, never persisted
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Dimensions int    `yaml:"dimensions" mapstructure:"dimensions"`
	Timeout    int    `yaml:"timeout" mapstructure:"timeout"` // seconds per request
}

// SearchConfig configures the vector search index upload.
type SearchConfig struct {
	Endpoint   string `yaml:"endpoint" mapstructure:"endpoint"`
	APIKey     string `yaml:"-" mapstructure:"-"` // from SEARCH_KEY, never persisted
	Index      string `yaml:"index" mapstructure:"index"`
	APIVersion string `yaml:"api_version" mapstructure:"api_version"`
	BatchSize  int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// CacheConfig controls the embedding vector cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir     string        `yaml:"dir" mapstructure:"dir"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// ConcurrencyConfig controls the embed stage's worker pool and API rate.
type ConcurrencyConfig struct {
	EmbedWorkers      int     `yaml:"embed_workers" mapstructure:"embed_workers"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// HTTPConfig holds shared HTTP client settings for the API clients.
type HTTPConfig struct {
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	HTTPProxy  string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// DefaultPattern matches catalog identifiers like "KM# 488", "C# 5-10" and
// "Y# 6.12": uppercase letters, '#', optional whitespace, digits, an optional
// range suffix and an optional sub-variant suffix.
const DefaultPattern = `[A-Z]+#\s*\d+(?:-\d+)?(?:\.\d+)?`

// DefaultConfig returns the built-in defaults. Tolerances and chunk size
// mirror the values the association heuristics were tuned with.
func DefaultConfig() *Config {
	return &Config{
		Extract: ExtractConfig{
			Pattern:            DefaultPattern,
			AllMatches:         false,
			PlacementTolerance: 2,
		},
		Cluster: ClusterConfig{
			Columns:       3,
			Seed:          42,
			MaxIterations: 100,
		},
		Match: MatchConfig{
			Policy:              "column",
			HorizontalTolerance: 50,
			VerticalTolerance:   -2,
		},
		Output: OutputConfig{
			Dir:         "platescan_output",
			ImagesDir:   "images",
			MappingFile: "km_image_text.json",
			ChunkSize:   80,
		},
		Embedding: EmbeddingConfig{
			Provider:   "pixel",
			Model:      "text-embedding-3-small",
			Dimensions: 512,
			Timeout:    30,
		},
		Search: SearchConfig{
			Index:      "images-index",
			APIVersion: "2023-11-01",
			BatchSize:  500,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".platescan-cache",
			TTL:     30 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			EmbedWorkers:      4,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		HTTP: HTTPConfig{
			Timeout: 60 * time.Second,
		},
	}
}
