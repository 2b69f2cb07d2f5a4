package sources

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	// WheelOutputDirectoryName is the origin-relative directory searched for
	// built distribution artifacts.
	WheelOutputDirectoryName = "dist"

	wheelFileSuffixConstant       = ".whl"
	wheelNameSeparatorConstant    = "-"
	wheelAnyPlatformTagConstant   = "any"
	wheelMinimumNameSegments      = 5
	zipSlipDetailTemplateConstant = "archive member %q escapes the extraction root"
	archiveOpenErrorTemplate      = "unable to open wheel %s: %w"
	packageNameHyphenConstant     = "-"
	packageNameUnderscoreConstant = "_"
)

// WheelArtifact describes a located build artifact.
type WheelArtifact struct {
	Path        string
	Name        string
	Version     string
	PlatformTag string
}

// parseWheelFileName splits a wheel file name into its tagged components.
// Wheel names follow {distribution}-{version}[-{build}]-{python}-{abi}-{platform}.whl
// with hyphens inside the distribution escaped as underscores, so parsing
// walks from the right.
func parseWheelFileName(fileName string) (WheelArtifact, bool) {
	if !strings.HasSuffix(fileName, wheelFileSuffixConstant) {
		return WheelArtifact{}, false
	}

	trimmedName := strings.TrimSuffix(fileName, wheelFileSuffixConstant)
	nameSegments := strings.Split(trimmedName, wheelNameSeparatorConstant)
	if len(nameSegments) < wheelMinimumNameSegments {
		return WheelArtifact{}, false
	}

	platformTag := nameSegments[len(nameSegments)-1]
	distributionSegments := nameSegments[:len(nameSegments)-3]
	// An optional build tag sits between version and python tag; it always
	// starts with a digit and only exists when six or more segments remain.
	if len(distributionSegments) > 2 && segmentStartsWithDigit(distributionSegments[len(distributionSegments)-1]) && segmentStartsWithDigit(distributionSegments[len(distributionSegments)-2]) {
		distributionSegments = distributionSegments[:len(distributionSegments)-1]
	}

	versionSegment := distributionSegments[len(distributionSegments)-1]
	distributionName := strings.Join(distributionSegments[:len(distributionSegments)-1], wheelNameSeparatorConstant)
	if len(distributionName) == 0 {
		return WheelArtifact{}, false
	}

	return WheelArtifact{Name: distributionName, Version: versionSegment, PlatformTag: platformTag}, true
}

func segmentStartsWithDigit(segment string) bool {
	return len(segment) > 0 && segment[0] >= '0' && segment[0] <= '9'
}

// NormalizePackageName canonicalizes a package name for artifact comparison.
func NormalizePackageName(packageName string) string {
	return strings.ToLower(strings.ReplaceAll(packageName, packageNameHyphenConstant, packageNameUnderscoreConstant))
}

// LocateWheel finds exactly one built wheel for the package in the search
// directory. An explicit platform tag is matched exactly; without one,
// pure-Python "any" wheels are preferred and remaining candidates must be
// unambiguous.
func LocateWheel(searchDirectory string, packageName string, platformTag string) (WheelArtifact, error) {
	directoryEntries, readError := os.ReadDir(searchDirectory)
	if readError != nil {
		return WheelArtifact{}, &ArtifactNotFoundError{PackageName: packageName, Platform: platformTag, SearchDirectory: searchDirectory}
	}

	normalizedPackageName := NormalizePackageName(packageName)
	candidates := []WheelArtifact{}
	for _, directoryEntry := range directoryEntries {
		if directoryEntry.IsDir() {
			continue
		}
		artifact, parsed := parseWheelFileName(directoryEntry.Name())
		if !parsed {
			continue
		}
		if NormalizePackageName(artifact.Name) != normalizedPackageName {
			continue
		}
		if len(platformTag) > 0 && artifact.PlatformTag != platformTag {
			continue
		}
		artifact.Path = filepath.Join(searchDirectory, directoryEntry.Name())
		candidates = append(candidates, artifact)
	}

	if len(platformTag) == 0 && len(candidates) > 1 {
		anyCandidates := []WheelArtifact{}
		for _, candidate := range candidates {
			if candidate.PlatformTag == wheelAnyPlatformTagConstant {
				anyCandidates = append(anyCandidates, candidate)
			}
		}
		if len(anyCandidates) > 0 {
			candidates = anyCandidates
		}
	}

	if len(candidates) != 1 {
		return WheelArtifact{}, &ArtifactNotFoundError{
			PackageName:     packageName,
			Platform:        platformTag,
			SearchDirectory: searchDirectory,
			CandidateCount:  len(candidates),
		}
	}
	return candidates[0], nil
}

// ExtractWheel unpacks the wheel archive into the target directory.
func ExtractWheel(wheelPath string, targetDirectory string) error {
	archiveReader, openError := zip.OpenReader(wheelPath)
	if openError != nil {
		return fmt.Errorf(archiveOpenErrorTemplate, wheelPath, openError)
	}
	defer archiveReader.Close()

	for _, archiveMember := range archiveReader.File {
		if extractionError := extractArchiveMember(archiveMember, targetDirectory); extractionError != nil {
			return extractionError
		}
	}
	return nil
}

func extractArchiveMember(archiveMember *zip.File, targetDirectory string) error {
	memberPath := filepath.Join(targetDirectory, filepath.FromSlash(archiveMember.Name))
	if !strings.HasPrefix(memberPath, filepath.Clean(targetDirectory)+string(os.PathSeparator)) {
		return fmt.Errorf(zipSlipDetailTemplateConstant, archiveMember.Name)
	}

	if archiveMember.FileInfo().IsDir() {
		return os.MkdirAll(memberPath, 0o755)
	}

	if makeError := os.MkdirAll(filepath.Dir(memberPath), 0o755); makeError != nil {
		return makeError
	}

	memberReader, readerError := archiveMember.Open()
	if readerError != nil {
		return readerError
	}
	defer memberReader.Close()

	targetFile, createError := os.OpenFile(memberPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, archiveMember.Mode().Perm())
	if createError != nil {
		return createError
	}
	defer targetFile.Close()

	_, copyError := io.Copy(targetFile, memberReader)
	return copyError
}
