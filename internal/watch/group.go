package watch

import (
	"path/filepath"
	"sort"

	"github.com/rarshelf/rarshelf/internal/archive"
	"github.com/rarshelf/rarshelf/internal/fsutil"
)

// GroupVolumesAt scans dir non-recursively and groups the RAR volume files
// found there into archive-set handles. Exported for rarshelfctl's manual
// submit command, which needs to resolve a path to one or more handles
// without starting a full Watcher.
func GroupVolumesAt(dir string) ([]ArchiveSetHandle, error) {
	return groupVolumes(dir)
}

// groupVolumes scans dir non-recursively and groups the RAR volume files it
// finds by stem, returning one handle per archive set.
func groupVolumes(dir string) ([]ArchiveSetHandle, error) {
	entries, err := fsutil.ReadDirWithRetry(dir, fsutil.DefaultRetryConfig())
	if err != nil {
		return nil, err
	}

	byStem := make(map[string][]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !archive.IsVolume(e.Name()) {
			continue
		}
		stem := archive.Stem(e.Name())
		byStem[stem] = append(byStem[stem], filepath.Join(dir, e.Name()))
	}

	handles := make([]ArchiveSetHandle, 0, len(byStem))
	for stem, paths := range byStem {
		handles = append(handles, ArchiveSetHandle{
			Dir:     dir,
			Stem:    stem,
			Volumes: archive.SortVolumes(paths),
		})
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i].Key() < handles[j].Key() })
	return handles, nil
}

// subdirs lists the immediate subdirectories of dir, used to walk a
// recursive source's directory tree when wiring up the filesystem watcher.
func subdirs(dir string) ([]string, error) {
	entries, err := fsutil.ReadDirWithRetry(dir, fsutil.DefaultRetryConfig())
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}
