package catalog

import (
	"fmt"
	"unicode/utf8"

	"github.com/shop/backend/internal/domain/shared"
)

func validateName(kind, name string, maxLen int) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", fmt.Sprintf("%s name cannot be empty", kind))
	}
	if utf8.RuneCountInString(name) > maxLen {
		return shared.NewDomainError("INVALID_NAME", fmt.Sprintf("%s name cannot exceed %d characters", kind, maxLen))
	}
	return nil
}
