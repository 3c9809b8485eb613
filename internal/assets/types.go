package assets

import (
	"sync"
)

type BuildMetadata struct {
	Outputs map[string]OutputInfo `json:"outputs"`
}

type OutputInfo struct {
	EntryPoint string       `json:"entryPoint"`
	Imports    []ImportInfo `json:"imports"`
}

type ImportInfo struct {
	Path string `json:"path"`
}

// Pipeline bundles the page scripts and resolves the files each page needs.
type Pipeline struct {
	config   Config
	metadata *BuildMetadata
	mu       sync.RWMutex
}

func New(config Config) *Pipeline {
	return &Pipeline{
		config: config,
	}
}
