package config

type AppConfig struct {
	DBDriver   string         `yaml:"db_driver" env:"CYBERINC_DB_DRIVER" env-default:"sqlite"`
	DBURL      string         `yaml:"db_url" env:"CYBERINC_DB_URL" env-default:""`
	DBPath     string         `yaml:"db_path" env:"CYBERINC_DB_PATH" env-default:"data/incidentes.db"`
	ListenAddr string         `yaml:"listen_addr" env:"CYBERINC_LISTEN_ADDR" env-default:"0.0.0.0:5000"`
	AppEnv     string         `yaml:"app_env" env:"CYBERINC_APP_ENV"`
	Uploads    UploadsConfig  `yaml:"uploads"`
	Previews   PreviewsConfig `yaml:"previews"`
	Listing    ListingConfig  `yaml:"listing"`
}

type UploadsConfig struct {
	Dir      string `yaml:"dir" env:"CYBERINC_UPLOADS_DIR" env-default:"uploads"`
	MaxBytes int64  `yaml:"max_bytes" env:"CYBERINC_UPLOADS_MAX_BYTES" env-default:"16777216"`
	// AllowedExtensions overrides the built-in allow-list when set.
	AllowedExtensions []string `yaml:"allowed_extensions" env:"CYBERINC_UPLOADS_ALLOWED_EXTENSIONS" env-separator:","`
}

type PreviewsConfig struct {
	Enabled     bool `yaml:"enabled" env:"CYBERINC_PREVIEWS_ENABLED" env-default:"true"`
	MaxWidth    int  `yaml:"max_width" env:"CYBERINC_PREVIEWS_MAX_WIDTH" env-default:"800"`
	MaxHeight   int  `yaml:"max_height" env:"CYBERINC_PREVIEWS_MAX_HEIGHT" env-default:"600"`
	JPEGQuality int  `yaml:"jpeg_quality" env:"CYBERINC_PREVIEWS_JPEG_QUALITY" env-default:"80"`
}

type ListingConfig struct {
	PageSize int `yaml:"page_size" env:"CYBERINC_LISTING_PAGE_SIZE" env-default:"20"`
}

func (c *AppConfig) EffectivePageSize() int {
	if c != nil && c.Listing.PageSize > 0 {
		return c.Listing.PageSize
	}
	return 20
}
