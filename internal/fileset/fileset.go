package fileset

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
)

const (
	pathSeparatorConstant           = "/"
	provenanceLabelTemplateConstant = "%s[%d] (%s)"
)

// RuleKind enumerates the producers that can contribute entries to a release.
type RuleKind string

// Producer kinds, one per configuration rule list plus the implicit ones.
const (
	RuleKindReleaseRoot RuleKind = "release-root"
	RuleKindLocal       RuleKind = "copy-local"
	RuleKindWheel       RuleKind = "copy-wheel-src"
	RuleKindRepo        RuleKind = "copy-repo-src"
	RuleKindGenerated   RuleKind = "generated"
)

// Provenance records which rule produced a file entry.
type Provenance struct {
	Kind      RuleKind
	RuleIndex int
	Source    string
}

// String renders the provenance as a compact label.
func (provenance Provenance) String() string {
	return fmt.Sprintf(provenanceLabelTemplateConstant, provenance.Kind, provenance.RuleIndex, provenance.Source)
}

// ContentProvider yields the byte content of an entry on demand.
type ContentProvider func() ([]byte, error)

// FileProvider builds a provider reading the file at the supplied absolute path.
func FileProvider(absolutePath string) ContentProvider {
	return func() ([]byte, error) {
		return os.ReadFile(absolutePath)
	}
}

// BytesProvider builds a provider returning in-memory content.
func BytesProvider(content []byte) ContentProvider {
	return func() ([]byte, error) {
		return content, nil
	}
}

// Entry associates a destination-relative path with content and provenance.
type Entry struct {
	DestinationPath string
	Provider        ContentProvider
	Provenance      Provenance
}

// ResolvedFileSet is the strict mapping from destination paths to entries.
type ResolvedFileSet struct {
	entriesByPath  map[string]Entry
	directoryPaths map[string]int
}

// NewResolvedFileSet constructs an empty file set.
func NewResolvedFileSet() *ResolvedFileSet {
	return &ResolvedFileSet{
		entriesByPath:  map[string]Entry{},
		directoryPaths: map[string]int{},
	}
}

// Insert adds an entry, failing with PathCollisionError when the destination
// path is already occupied or conflicts with an implied directory.
func (set *ResolvedFileSet) Insert(entry Entry) error {
	if existingEntry, pathOccupied := set.entriesByPath[entry.DestinationPath]; pathOccupied {
		return &PathCollisionError{
			DestinationPath:    entry.DestinationPath,
			ExistingProvenance: existingEntry.Provenance,
			IncomingProvenance: entry.Provenance,
		}
	}

	// A file cannot occupy a path that other entries use as a directory,
	// and none of its ancestor directories may already be files.
	if directoryUsers := set.directoryPaths[entry.DestinationPath]; directoryUsers > 0 {
		return &PathCollisionError{DestinationPath: entry.DestinationPath, IncomingProvenance: entry.Provenance}
	}
	for _, ancestorPath := range ancestorPaths(entry.DestinationPath) {
		if existingEntry, ancestorIsFile := set.entriesByPath[ancestorPath]; ancestorIsFile {
			return &PathCollisionError{
				DestinationPath:    entry.DestinationPath,
				ExistingProvenance: existingEntry.Provenance,
				IncomingProvenance: entry.Provenance,
			}
		}
	}

	set.entriesByPath[entry.DestinationPath] = entry
	for _, ancestorPath := range ancestorPaths(entry.DestinationPath) {
		set.directoryPaths[ancestorPath]++
	}
	return nil
}

// Put inserts or replaces an entry. It is reserved for generated metadata and
// deliberate edits of already-selected files; rule merging always uses Insert.
func (set *ResolvedFileSet) Put(entry Entry) {
	if _, pathOccupied := set.entriesByPath[entry.DestinationPath]; pathOccupied {
		set.entriesByPath[entry.DestinationPath] = entry
		return
	}
	set.entriesByPath[entry.DestinationPath] = entry
	for _, ancestorPath := range ancestorPaths(entry.DestinationPath) {
		set.directoryPaths[ancestorPath]++
	}
}

// MergeUnder inserts every entry of the other set re-rooted below prefix.
func (set *ResolvedFileSet) MergeUnder(prefix string, other *ResolvedFileSet) error {
	for _, destinationPath := range other.Paths() {
		entry, _ := other.Lookup(destinationPath)
		entry.DestinationPath = path.Join(prefix, destinationPath)
		if insertError := set.Insert(entry); insertError != nil {
			return insertError
		}
	}
	return nil
}

// Lookup returns the entry stored at the supplied destination path.
func (set *ResolvedFileSet) Lookup(destinationPath string) (Entry, bool) {
	entry, entryExists := set.entriesByPath[destinationPath]
	return entry, entryExists
}

// Paths returns every destination path in lexicographic order.
func (set *ResolvedFileSet) Paths() []string {
	orderedPaths := make([]string, 0, len(set.entriesByPath))
	for destinationPath := range set.entriesByPath {
		orderedPaths = append(orderedPaths, destinationPath)
	}
	sort.Strings(orderedPaths)
	return orderedPaths
}

// Len reports the number of entries in the set.
func (set *ResolvedFileSet) Len() int {
	return len(set.entriesByPath)
}

func ancestorPaths(destinationPath string) []string {
	ancestors := []string{}
	for separatorIndex := strings.IndexByte(destinationPath, pathSeparatorConstant[0]); separatorIndex > 0; {
		ancestors = append(ancestors, destinationPath[:separatorIndex])
		nextIndex := strings.IndexByte(destinationPath[separatorIndex+1:], pathSeparatorConstant[0])
		if nextIndex < 0 {
			break
		}
		separatorIndex += 1 + nextIndex
	}
	return ancestors
}
