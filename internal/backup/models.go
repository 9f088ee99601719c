package backup

import (
	"iter"
	"strings"
	"time"

	"glacier-backup/internal/uploader"
)

// BackupTarget is a local file scheduled for upload
type BackupTarget struct {
	FullPath     string
	RelativeRoot string
}

// NewBackupTarget creates a target for fullPath relative to relativeRoot
func NewBackupTarget(fullPath, relativeRoot string) BackupTarget {
	return BackupTarget{FullPath: fullPath, RelativeRoot: relativeRoot}
}

// Description is the archive description recorded with the upload: the full
// path with every occurrence of the relative root removed. This is plain
// substring removal, so a root that reappears deeper in the path is removed
// there too.
func (t BackupTarget) Description() string {
	if t.RelativeRoot == "" {
		return t.FullPath
	}
	return strings.ReplaceAll(t.FullPath, t.RelativeRoot, "")
}

// Targets adapts a sequence of discovered paths into backup targets
func Targets(paths iter.Seq2[string, error], relativeRoot string) iter.Seq2[BackupTarget, error] {
	return func(yield func(BackupTarget, error) bool) {
		for path, err := range paths {
			if err != nil {
				if !yield(BackupTarget{}, err) {
					return
				}
				continue
			}
			if !yield(NewBackupTarget(path, relativeRoot), nil) {
				return
			}
		}
	}
}

// UploadOutcome is the final state of one target after the orchestrator has
// finished with it. A nil Result marks a file that could not be archived.
type UploadOutcome struct {
	Region      string
	Vault       string
	Target      BackupTarget
	Result      *uploader.Result
	Attempts    int
	Err         error
	Interrupted bool
	Duration    time.Duration
}

// Succeeded reports whether the file was archived
func (o *UploadOutcome) Succeeded() bool {
	return o.Result != nil
}

// Description returns the archive description of the target
func (o *UploadOutcome) Description() string {
	return o.Target.Description()
}

// ArchiveID returns the archive identifier or "" for failures
func (o *UploadOutcome) ArchiveID() string {
	if o.Result == nil {
		return ""
	}
	return o.Result.ArchiveID
}

// Checksum returns the tree hash or "" for failures
func (o *UploadOutcome) Checksum() string {
	if o.Result == nil {
		return ""
	}
	return o.Result.Checksum
}
