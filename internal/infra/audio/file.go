package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"chat-mate/internal/domain"
)

var clipExtensions = map[string]bool{
	".wav":  true,
	".wave": true,
	".mp3":  true,
	".m4a":  true,
	".webm": true,
}

// FileSource polls a directory for clip files. Each file is handed out once
// and renamed with a .processed suffix.
type FileSource struct {
	dir          string
	sampleRate   int
	pollInterval time.Duration
	processed    map[string]bool
	mu           sync.Mutex
}

func NewFileSource(dir string, sampleRate int) *FileSource {
	return &FileSource{
		dir:          dir,
		sampleRate:   sampleRate,
		pollInterval: 500 * time.Millisecond,
		processed:    make(map[string]bool),
	}
}

func (f *FileSource) Name() string {
	return "file"
}

func (f *FileSource) Start(_ context.Context) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("creating audio dir: %w", err)
	}
	return nil
}

func (f *FileSource) Stop() error {
	return nil
}

func (f *FileSource) NextClip(ctx context.Context) (domain.AudioClip, error) {
	if clip, ok, err := f.checkForNewFile(); err != nil || ok {
		return clip, err
	}

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return domain.AudioClip{}, ctx.Err()
		case <-ticker.C:
			clip, ok, err := f.checkForNewFile()
			if err != nil {
				return domain.AudioClip{}, err
			}
			if ok {
				return clip, nil
			}
		}
	}
}

func (f *FileSource) checkForNewFile() (domain.AudioClip, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return domain.AudioClip{}, false, fmt.Errorf("reading dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !clipExtensions[ext] {
			continue
		}

		path := filepath.Join(f.dir, entry.Name())
		if f.processed[path] {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return domain.AudioClip{}, false, fmt.Errorf("reading file %s: %w", path, err)
		}

		f.processed[path] = true
		os.Rename(path, path+".processed")

		return domain.AudioClip{
			Data:       data,
			Container:  containerFromExt(ext),
			SampleRate: f.sampleRate,
		}, true, nil
	}

	return domain.AudioClip{}, false, nil
}

func containerFromExt(ext string) string {
	if ext == ".wave" {
		return domain.ContainerWAV
	}
	return strings.TrimPrefix(ext, ".")
}
