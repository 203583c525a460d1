package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"

	"github.com/moocmirror/mooc-mirror/internal/resolve"
)

// Settings holds all configuration options.
type Settings struct {
	// Download settings
	TargetDir             string  `json:"target_dir"`
	Parallelism           int     `json:"parallelism"`
	DownloadMaxRetries    int     `json:"download_max_retries"`
	DownloadRetryCooldown float64 `json:"download_retry_cooldown"`
	DownloadRetryExponent float64 `json:"download_retry_exponent"`
	DownloadDelay         float64 `json:"download_delay"`
	Resume                bool    `json:"resume"`
	Overwrite             bool    `json:"overwrite"`

	// Platform endpoints. The {course} and {item} placeholders are
	// replaced with identifiers.
	SyllabusURLTemplate    string `json:"syllabus_url_template"`
	ItemContentURLTemplate string `json:"item_content_url_template"`

	// Session and transport
	CookieHeader   string  `json:"cookie_header"`
	UserAgent      string  `json:"user_agent"`
	RequestTimeout float64 `json:"request_timeout"`

	// External downloader: empty means the native downloader; otherwise
	// one of wget, curl, aria2c, axel.
	ExternalDownloader string `json:"external_downloader"`

	// Layout
	CombinedSectionItemNums bool `json:"combined_section_item_nums"`

	// Filtering
	FileFormats    []string `json:"file_formats"`
	IgnoredFormats []string `json:"ignored_formats"`
	SectionFilter  string   `json:"section_filter"`
	ItemFilter     string   `json:"item_filter"`
	ResourceFilter string   `json:"resource_filter"`

	// DisableURLSkipping turns off the heuristics that drop resource URLs
	// which look like tracking pixels or junk for untrusted formats.
	DisableURLSkipping bool `json:"disable_url_skipping"`

	// Post-processing. An ImageMaxSize of zero converts images to JPEG
	// without resizing.
	CreatePlaylists     bool `json:"create_playlists"`
	ConvertImagesToJPEG bool `json:"convert_images_to_jpeg"`
	ImageMaxSize        int  `json:"image_max_size"`

	// State locations
	CacheDir  string `json:"cache_dir"`
	LedgerDir string `json:"ledger_dir"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	stateDir := filepath.Join(homeDir, ".mooc-mirror")
	return &Settings{
		TargetDir:             filepath.Join(homeDir, "Courses"),
		Parallelism:           4,
		DownloadMaxRetries:    5,
		DownloadRetryCooldown: 0.5,
		DownloadRetryExponent: 2.0,
		DownloadDelay:         0,
		Resume:                false,
		Overwrite:             false,

		UserAgent:      "mooc-mirror",
		RequestTimeout: 60,

		FileFormats: []string{"all"},

		CreatePlaylists:     false,
		ConvertImagesToJPEG: false,
		ImageMaxSize:        1600,

		CacheDir:  filepath.Join(stateDir, "cache"),
		LedgerDir: filepath.Join(stateDir, "ledgers"),
	}
}

// Load reads settings from a JSON file. A missing file yields defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ToFilters compiles the filter settings into resolver predicates.
func (s *Settings) ToFilters() (resolve.Filters, error) {
	filters := resolve.Filters{
		Formats:            resolve.FormatSet(s.FileFormats),
		DisableURLSkipping: s.DisableURLSkipping,
	}
	if len(s.IgnoredFormats) > 0 {
		filters.Ignored = resolve.FormatSet(s.IgnoredFormats)
	}

	var err error
	if s.SectionFilter != "" {
		if filters.Section, err = regexp.Compile(s.SectionFilter); err != nil {
			return filters, err
		}
	}
	if s.ItemFilter != "" {
		if filters.Item, err = regexp.Compile(s.ItemFilter); err != nil {
			return filters, err
		}
	}
	if s.ResourceFilter != "" {
		if filters.Resource, err = regexp.Compile(s.ResourceFilter); err != nil {
			return filters, err
		}
	}
	return filters, nil
}
