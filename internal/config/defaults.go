package config

const (
	PlacementCopy = "copy"
	PlacementMove = "move"
)

const (
	defaultTempDir          = "tempWorkSpace"
	defaultStateDir         = "~/.local/share/modelsort"
	defaultPlacement        = PlacementCopy
	defaultMaxArchiveDepth  = 8
	defaultFilenameEncoding = "cp437"
	defaultIgnoreFile       = ".modelsortignore"
	defaultHistoryEnabled   = true
	defaultHistoryListLimit = 20
	defaultStaleAfterHours  = 24
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

var (
	defaultArchiveExtensions = []string{".zip"}
	defaultAssetExtensions   = []string{".obj"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			TempDir:  defaultTempDir,
			StateDir: defaultStateDir,
		},
		Organize: Organize{
			ArchiveExtensions: append([]string(nil), defaultArchiveExtensions...),
			AssetExtensions:   append([]string(nil), defaultAssetExtensions...),
			Placement:         defaultPlacement,
			MaxArchiveDepth:   defaultMaxArchiveDepth,
			FilenameEncoding:  defaultFilenameEncoding,
			IgnoreFile:        defaultIgnoreFile,
		},
		History: History{
			Enabled:   defaultHistoryEnabled,
			ListLimit: defaultHistoryListLimit,
		},
		Workspace: Workspace{
			StaleAfterHours: defaultStaleAfterHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
