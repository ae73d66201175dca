package scraper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/egtbills/tbill-yields/internal/logger"
)

// ErrStructureMismatch reports that the page no longer matches the known layout
var ErrStructureMismatch = errors.New("page structure mismatch")

// StructureError names the landmark that was not found
type StructureError struct {
	Marker string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("page structure verification failed: marker %q not found, the site layout may have changed", e.Marker)
}

func (e *StructureError) Is(target error) bool {
	return target == ErrStructureMismatch
}

// Verify checks that every marker appears in the raw page text, in order, and
// fails on the first one missing
func Verify(markup string, markers []string) error {
	for _, marker := range markers {
		if !strings.Contains(markup, marker) {
			return &StructureError{Marker: marker}
		}
	}
	logger.Debug("page structure verified", logger.Fields{"markers": len(markers)})
	return nil
}
