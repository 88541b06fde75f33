package publish

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	FormatEpub = "epub"
	FormatMobi = "mobi"
)

type Artifact struct {
	Path    string    `json:"-"`
	Name    string    `json:"name"`
	Format  string    `json:"format"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified_at"`
}

// Artifacts locates the files written by generation runs.
type Artifacts struct {
	dir string
}

func NewArtifacts(dir string) *Artifacts {
	return &Artifacts{dir: dir}
}

func (a *Artifacts) Dir() string {
	return a.dir
}

// PathsFor returns the output paths for a run on the given day.
func (a *Artifacts) PathsFor(day time.Time) (epubPath string, mobiPath string) {
	base := filepath.Join(a.dir, "digest-"+day.Format("2006-01-02"))
	return base + "." + FormatEpub, base + "." + FormatMobi
}

// Latest returns the most recently modified artifact of the format, or nil when there is none.
func (a *Artifacts) Latest(format string) (*Artifact, error) {
	format = strings.ToLower(format)
	if format != FormatEpub && format != FormatMobi {
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	files, err := filepath.Glob(filepath.Join(a.dir, "*."+format))
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	var latest *Artifact
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil || info.IsDir() {
			continue
		}
		if latest == nil || info.ModTime().After(latest.ModTime) {
			latest = &Artifact{
				Path:    file,
				Name:    filepath.Base(file),
				Format:  format,
				Size:    info.Size(),
				ModTime: info.ModTime(),
			}
		}
	}

	return latest, nil
}
