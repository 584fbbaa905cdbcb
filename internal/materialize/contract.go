package materialize

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rarshelf/rarshelf/internal/archive"
	"github.com/rarshelf/rarshelf/internal/fsutil"
)

// Strategy materializes one archive entry into targetDir, producing a
// visible, playable name there or returning an error. All three strategies
// (extract, virtual_http, external_mount) implement this from the common
// contract of §4.5.
type Strategy interface {
	Materialize(ctx context.Context, session *archive.Session, entry archive.Entry, targetDir, libraryID string) error
}

// FinalizeName resolves the sanitized, collision-free name an entry should
// receive inside targetDir.
func FinalizeName(targetDir string, entryName string) string {
	sanitized := Sanitize(entryName)
	return UniqueName(func(candidate string) bool {
		_, err := os.Stat(filepath.Join(targetDir, candidate))
		return err == nil
	}, sanitized)
}

// FinalizeRename moves tmpPath into targetDir under its sanitized,
// collision-free name with a single same-volume rename (or copy-then-delete
// fallback across devices), satisfying §4.5's atomicity requirement. It
// returns the final path.
func FinalizeRename(tmpPath, targetDir, entryName string) (string, error) {
	final := filepath.Join(targetDir, FinalizeName(targetDir, entryName))
	if err := fsutil.RenameOrCopy(tmpPath, final); err != nil {
		return "", err
	}
	return final, nil
}
