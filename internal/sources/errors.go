package sources

import (
	"fmt"
	"strings"
)

const (
	artifactNotFoundErrorTemplateConstant  = "no wheel artifact for package %q (platform %q) in %s"
	artifactAmbiguousErrorTemplateConstant = "found %d wheel artifacts for package %q (platform %q) in %s"
	sourceFetchErrorTemplateConstant       = "unable to fetch %q at ref %q: %v"
	cyclicReleaseErrorTemplateConstant     = "release configuration cycle detected: %s"
	cycleChainSeparatorConstant            = " -> "
)

// ArtifactNotFoundError reports a wheel rule that matched zero or multiple artifacts.
type ArtifactNotFoundError struct {
	PackageName     string
	Platform        string
	SearchDirectory string
	CandidateCount  int
}

// Error implements the error interface.
func (artifactError *ArtifactNotFoundError) Error() string {
	if artifactError.CandidateCount > 1 {
		return fmt.Sprintf(
			artifactAmbiguousErrorTemplateConstant,
			artifactError.CandidateCount,
			artifactError.PackageName,
			artifactError.Platform,
			artifactError.SearchDirectory,
		)
	}
	return fmt.Sprintf(
		artifactNotFoundErrorTemplateConstant,
		artifactError.PackageName,
		artifactError.Platform,
		artifactError.SearchDirectory,
	)
}

// SourceFetchError reports a remote repository rule that could not be satisfied.
type SourceFetchError struct {
	RemoteAddress string
	Reference     string
	Cause         error
}

// Error implements the error interface.
func (fetchError *SourceFetchError) Error() string {
	return fmt.Sprintf(sourceFetchErrorTemplateConstant, fetchError.RemoteAddress, fetchError.Reference, fetchError.Cause)
}

// Unwrap exposes the underlying failure.
func (fetchError *SourceFetchError) Unwrap() error {
	return fetchError.Cause
}

// CyclicReleaseError reports a repository that directly or transitively references itself.
type CyclicReleaseError struct {
	Chain []string
}

// Error implements the error interface.
func (cycleError *CyclicReleaseError) Error() string {
	return fmt.Sprintf(cyclicReleaseErrorTemplateConstant, strings.Join(cycleError.Chain, cycleChainSeparatorConstant))
}
