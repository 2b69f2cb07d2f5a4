package sources

import (
	"fmt"
	"io"
	"strings"

	"github.com/valyala/fasttemplate"
)

const (
	refTemplateTagConstant        = "$"
	refTemplateNameTagConstant    = "NAME"
	refTemplateVersionTagConstant = "VERSION"
	unknownPlaceholderTemplate    = "unknown placeholder $%s$ in ref template %q"
	emptyVersionDetailTemplate    = "ref template %q needs a version but none was resolved for package %q"
)

// ExpandRef substitutes $NAME$ and $VERSION$ placeholders in a ref template.
// The version is resolved lazily so refs without a $VERSION$ placeholder
// never trigger a version lookup.
func ExpandRef(refTemplate string, packageName string, resolveVersion func() (string, error)) (string, error) {
	if !strings.Contains(refTemplate, refTemplateTagConstant) {
		return refTemplate, nil
	}

	expandedRef, expansionError := fasttemplate.ExecuteFuncStringWithErr(
		refTemplate,
		refTemplateTagConstant,
		refTemplateTagConstant,
		func(writer io.Writer, tagName string) (int, error) {
			switch tagName {
			case refTemplateNameTagConstant:
				return writer.Write([]byte(packageName))
			case refTemplateVersionTagConstant:
				versionString, versionError := resolveVersion()
				if versionError != nil {
					return 0, versionError
				}
				if len(versionString) == 0 {
					return 0, fmt.Errorf(emptyVersionDetailTemplate, refTemplate, packageName)
				}
				return writer.Write([]byte(versionString))
			default:
				return 0, fmt.Errorf(unknownPlaceholderTemplate, tagName, refTemplate)
			}
		},
	)
	if expansionError != nil {
		return "", expansionError
	}
	return expandedRef, nil
}
