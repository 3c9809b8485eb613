package assets

import (
	"encoding/json"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
)

var ErrNoEntryPoints = errors.New("no entry points found")

// Build runs esbuild with the configured settings and loads metadata
func (p *Pipeline) Build() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	entryPoints, err := filepath.Glob(p.config.EntryPointGlob)
	if err != nil {
		return err
	}

	if len(entryPoints) == 0 {
		return ErrNoEntryPoints
	}

	log.Info().Strs("entrypoints", entryPoints).Msg("Building assets")

	result := api.Build(api.BuildOptions{
		EntryPoints:       entryPoints,
		Bundle:            true,
		Splitting:         true,
		Write:             true,
		Outdir:            p.config.OutputDir,
		Format:            api.FormatESModule,
		Target:            api.ES2020,
		MinifyWhitespace:  p.config.Minify,
		MinifyIdentifiers: p.config.Minify,
		MinifySyntax:      p.config.Minify,
		TreeShaking:       api.TreeShakingTrue,
		Sourcemap:         cond(p.config.SourceMap, api.SourceMapLinked, api.SourceMapNone),
		Metafile:          true,
	})

	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			log.Error().Str("error", msg.Text).Msg("Build error")
		}
		return errors.New("esbuild failed with errors")
	}

	for _, file := range result.OutputFiles {
		log.Debug().Str("file", file.Path).Msg("Built file")
	}

	if err := os.WriteFile(p.config.MetafilePath, []byte(result.Metafile), 0600); err != nil {
		return err
	}

	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return err
	}

	p.metadata = &metadata
	return nil
}

// Scripts returns the public URLs of the bundle built for entryPointPath followed by
// the chunks it imports, in load order.
func (p *Pipeline) Scripts(entryPointPath string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, errors.New("assets not built yet, call Build() first")
	}

	entryPointPath = filepath.ToSlash(entryPointPath)

	for outputPath, info := range p.metadata.Outputs {
		if info.EntryPoint != entryPointPath {
			continue
		}
		visited := map[string]bool{outputPath: true}
		scripts := []string{p.publicURL(outputPath)}
		p.addDependencies(info, &scripts, visited)
		return scripts, nil
	}

	return nil, errors.New("entrypoint not found in metadata")
}

func (p *Pipeline) addDependencies(output OutputInfo, scripts *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		if visited[imp.Path] {
			continue
		}
		visited[imp.Path] = true
		*scripts = append(*scripts, p.publicURL(imp.Path))

		if chunkInfo, exists := p.metadata.Outputs[imp.Path]; exists {
			p.addDependencies(chunkInfo, scripts, visited)
		}
	}
}

// publicURL maps an output path from the metafile, which is relative to the
// working directory, to the URL it is served from.
func (p *Pipeline) publicURL(outputPath string) string {
	rel := strings.TrimPrefix(filepath.ToSlash(outputPath), filepath.ToSlash(filepath.Clean(p.config.OutputDir))+"/")
	return path.Join("/", p.config.PublicPath, rel)
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
