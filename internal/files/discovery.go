package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Price file extensions read by the CSV provider.
var PriceExtensions = []string{".csv", ".xlsx"}

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Stem returns the file name without its extension.
func (f FileInfo) Stem() string {
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
}

// Inventory summarizes the files of one directory.
type Inventory struct {
	Dir      string     `json:"dir"`
	Files    int        `json:"files"`
	Bytes    int64      `json:"bytes"`
	Latest   string     `json:"latest,omitempty"`
	LatestAt *time.Time `json:"latest_at,omitempty"`
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) || d.basePath == "" {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}

// FindByExtension lists the regular files in dir whose extension matches one
// of exts, case-insensitively. No exts matches every file. Results are sorted
// oldest first, ties by name.
func (d *Discovery) FindByExtension(dir string, exts ...string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)
	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		want[strings.ToLower(e)] = true
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if len(want) > 0 && !want[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.Before(files[j].ModTime)
	})
	return files, nil
}

// FindPriceFiles lists the price files in dir.
func (d *Discovery) FindPriceFiles(dir string) ([]FileInfo, error) {
	return d.FindByExtension(dir, PriceExtensions...)
}

// Latest returns the most recently modified matching file in dir.
func (d *Discovery) Latest(dir string, exts ...string) (FileInfo, bool, error) {
	files, err := d.FindByExtension(dir, exts...)
	if err != nil || len(files) == 0 {
		return FileInfo{}, false, err
	}
	return files[len(files)-1], true, nil
}

// Inventory summarizes the matching files in dir.
func (d *Discovery) Inventory(dir string, exts ...string) (Inventory, error) {
	files, err := d.FindByExtension(dir, exts...)
	if err != nil {
		return Inventory{}, err
	}
	inv := Inventory{Dir: d.resolve(dir), Files: len(files)}
	for _, f := range files {
		inv.Bytes += f.Size
	}
	if n := len(files); n > 0 {
		last := files[n-1]
		at := last.ModTime.UTC()
		inv.Latest = last.Name
		inv.LatestAt = &at
	}
	return inv, nil
}

// Symbols returns the sorted, de-duplicated stems of files. A symbol with
// both a CSV and a workbook is listed once.
func Symbols(files []FileInfo) []string {
	seen := make(map[string]bool, len(files))
	out := make([]string, 0, len(files))
	for _, f := range files {
		s := f.Stem()
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
