package remote

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Entry is an immutable snapshot of one remote directory entry,
// produced fresh on every listing and never cached across calls.
type Entry struct {
	Name    string
	Size    uint64
	IsDir   bool
	Mode    uint32
	ModTime time.Time
}

// HumanSize renders the entry size for display. Directories render empty,
// matching how file browsers group them.
func (e Entry) HumanSize() string {
	if e.IsDir {
		return ""
	}
	size := float64(e.Size)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.1f TB", size)
}

// SortEntries orders a listing the way the presentation layer renders it:
// directories first, then case-insensitive name order within each group.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}
