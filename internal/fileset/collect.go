package fileset

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// CollectOptions controls directory enumeration into a ResolvedFileSet.
type CollectOptions struct {
	// SourcePath is the absolute file or directory to enumerate.
	SourcePath string
	// DestinationPrefix is the destination-relative root for collected entries.
	DestinationPrefix string
	// Ignores filters out matching relative paths (directories are pruned).
	Ignores IgnoreMatcher
	// ReplacePrefix, when non-empty, is stripped from matching base names.
	ReplacePrefix string
	// Provenance is recorded on every collected entry.
	Provenance Provenance
}

// Collect enumerates a source file or directory into the set. Single files
// land inside the destination prefix under their own base name, matching the
// behavior of copying a file into a directory.
func Collect(set *ResolvedFileSet, options CollectOptions) error {
	sourceInfo, statError := os.Stat(options.SourcePath)
	if statError != nil {
		return statError
	}

	if !sourceInfo.IsDir() {
		destinationPath := path.Join(options.DestinationPrefix, applyReplacePrefix(filepath.Base(options.SourcePath), options.ReplacePrefix))
		return set.Insert(Entry{
			DestinationPath: destinationPath,
			Provider:        FileProvider(options.SourcePath),
			Provenance:      options.Provenance,
		})
	}

	return filepath.WalkDir(options.SourcePath, func(currentPath string, directoryEntry fs.DirEntry, walkError error) error {
		if walkError != nil {
			return walkError
		}
		if currentPath == options.SourcePath {
			return nil
		}

		relativePath, relativeError := filepath.Rel(options.SourcePath, currentPath)
		if relativeError != nil {
			return relativeError
		}
		slashRelativePath := filepath.ToSlash(relativePath)

		if options.Ignores.Matches(slashRelativePath) {
			if directoryEntry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if directoryEntry.IsDir() {
			return nil
		}

		destinationRelativePath := slashRelativePath
		if len(options.ReplacePrefix) > 0 {
			parentPath := path.Dir(slashRelativePath)
			replacedName := applyReplacePrefix(path.Base(slashRelativePath), options.ReplacePrefix)
			destinationRelativePath = path.Join(parentPath, replacedName)
		}

		return set.Insert(Entry{
			DestinationPath: path.Join(options.DestinationPrefix, destinationRelativePath),
			Provider:        FileProvider(currentPath),
			Provenance:      options.Provenance,
		})
	})
}

func applyReplacePrefix(baseName string, replacePrefix string) string {
	if len(replacePrefix) == 0 || !strings.HasPrefix(baseName, replacePrefix) {
		return baseName
	}
	return strings.TrimPrefix(baseName, replacePrefix)
}
