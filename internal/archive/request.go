package archive

import (
	"fmt"
	"strings"

	"poolpack/internal/services"
)

// Request is an accepted batch: the ordered resource ids to package, an
// optional download filename and the consumer the gateway authenticated.
type Request struct {
	ResourceIDs []string
	Filename    string
	ConsumerID  string
}

// Validate rejects empty batches, blank ids and batches above maxItems.
// Duplicate ids are allowed; each occurrence becomes its own entry.
func (r Request) Validate(maxItems int) error {
	if len(r.ResourceIDs) == 0 {
		return services.Wrap(services.ErrValidation, "archive", "validate", "batch contains no resources", nil)
	}
	if maxItems > 0 && len(r.ResourceIDs) > maxItems {
		return services.Wrap(services.ErrValidation, "archive", "validate",
			fmt.Sprintf("batch has %d resources, limit is %d", len(r.ResourceIDs), maxItems), nil)
	}
	for i, id := range r.ResourceIDs {
		if strings.TrimSpace(id) == "" {
			return services.Wrap(services.ErrValidation, "archive", "validate",
				fmt.Sprintf("resource id at position %d is empty", i), nil)
		}
	}
	return nil
}
