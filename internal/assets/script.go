package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"imgedit-backend/pkg/logger"

	"github.com/evanw/esbuild/pkg/api"
)

// ScriptCache serves the browser bundle. When the TypeScript source exists
// it is bundled with esbuild and kept until the source's modification time
// advances; otherwise the prebuilt bundle is served as is.
type ScriptCache struct {
	source string
	bundle string

	mu      sync.Mutex
	modTime time.Time
	built   []byte
	builds  int
}

func NewScriptCache(source, bundle string) *ScriptCache {
	return &ScriptCache{source: source, bundle: bundle}
}

func (c *ScriptCache) Get() ([]byte, error) {
	info, err := os.Stat(c.source)
	if errors.Is(err, fs.ErrNotExist) {
		data, err := os.ReadFile(c.bundle)
		if err != nil {
			return nil, fmt.Errorf("read prebuilt bundle: %w", err)
		}
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat script source: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.built != nil && !info.ModTime().After(c.modTime) {
		return c.built, nil
	}

	start := time.Now()
	built, err := bundle(c.source)
	if err != nil {
		return nil, err
	}
	c.built = built
	c.modTime = info.ModTime()
	c.builds++
	logger.Infof("built %s in %s (%d bytes)", c.source, time.Since(start).Round(time.Millisecond), len(built))
	return c.built, nil
}

func bundle(entry string) ([]byte, error) {
	result := api.Build(api.BuildOptions{
		EntryPoints: []string{entry},
		Bundle:      true,
		Write:       false,
		Format:      api.FormatESModule,
		Target:      api.ES2020,
		LogLevel:    api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, m := range result.Errors {
			msgs = append(msgs, m.Text)
		}
		return nil, fmt.Errorf("bundle %s: %s", entry, strings.Join(msgs, "; "))
	}
	if len(result.OutputFiles) == 0 {
		return nil, fmt.Errorf("bundle %s: no output", entry)
	}
	return result.OutputFiles[0].Contents, nil
}
