package assets

type Config struct {
	// Entry point glob pattern (e.g., "ui/pages/*.ts")
	EntryPointGlob string
	// Output directory for built files
	OutputDir string
	// Path to metafile
	MetafilePath string
	// URL prefix the output directory is served under
	PublicPath string
	Minify     bool
	SourceMap  bool
}

// DefaultConfig returns the layout used by the server binary.
func DefaultConfig() Config {
	return Config{
		EntryPointGlob: "ui/pages/*.ts",
		OutputDir:      "public",
		MetafilePath:   "public/meta.json",
		PublicPath:     "/public",
		Minify:         true,
		SourceMap:      true,
	}
}
