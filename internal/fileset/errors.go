package fileset

import "fmt"

const pathCollisionErrorTemplateConstant = "destination path %q produced by %s collides with entry produced by %s"

// PathCollisionError reports two producers targeting the same destination path.
type PathCollisionError struct {
	DestinationPath    string
	ExistingProvenance Provenance
	IncomingProvenance Provenance
}

// Error implements the error interface.
func (collisionError *PathCollisionError) Error() string {
	return fmt.Sprintf(
		pathCollisionErrorTemplateConstant,
		collisionError.DestinationPath,
		collisionError.IncomingProvenance,
		collisionError.ExistingProvenance,
	)
}
