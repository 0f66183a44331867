package config

const (
	defaultConfigPath       = "~/.config/cubemix/config.toml"
	projectConfigName       = "cubemix.toml"
	defaultCatalogDir       = "~/.local/share/cubemix/luts"
	defaultStateDir         = "~/.local/share/cubemix"
	defaultLogDir           = "~/.local/share/cubemix/logs"
	defaultQuality          = "high"
	defaultContainer        = "png"
	defaultFrameRate        = 30
	defaultNameOpacity      = "primary"
	defaultPreviewTolerance = 50
	defaultOpacity          = 1.0
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

var defaultFallbackOffsetsMS = []int{100, -100, 500, 1000}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CatalogDir: defaultCatalogDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
		},
		Export: Export{
			Quality:     defaultQuality,
			Container:   defaultContainer,
			FrameRate:   defaultFrameRate,
			NameOpacity: defaultNameOpacity,
		},
		Preview: Preview{
			ToleranceMS:       defaultPreviewTolerance,
			FallbackOffsetsMS: append([]int(nil), defaultFallbackOffsetsMS...),
		},
		Grading: Grading{
			PrimaryOpacity:   defaultOpacity,
			SecondaryOpacity: defaultOpacity,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
