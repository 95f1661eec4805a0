package validation

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/qsolog/internal/server/models"
)

// submodeRequiredMode maps each constrained submode to the only mode it may
// be paired with. Submodes absent from the table carry no requirement.
var submodeRequiredMode = map[models.Submode]models.Mode{
	models.SubmodeFT8:    models.ModeMFSK,
	models.SubmodeFT4:    models.ModeMFSK,
	models.SubmodeJS8:    models.ModeMFSK,
	models.SubmodePSK31:  models.ModePSK,
	models.SubmodePSK63:  models.ModePSK,
	models.SubmodePSK125: models.ModePSK,
}

// RequiredMode returns the mode a submode must be logged under, if any.
func RequiredMode(s models.Submode) (models.Mode, bool) {
	m, ok := submodeRequiredMode[s]
	return m, ok
}

// ValidateModeConfiguration checks the mode/submode/custom-mode triple and
// returns every violated rule. An empty result means the triple is valid.
func ValidateModeConfiguration(mode models.Mode, submode models.Submode, customMode string) []string {
	var errs []string

	if strings.TrimSpace(customMode) != "" {
		if mode != models.ModeDATA {
			errs = append(errs, "customMode requires mode=DATA")
		}
		if submode.IsSet() {
			errs = append(errs, "customMode requires submode=null")
		}
	}

	if required, ok := submodeRequiredMode[submode]; ok && mode != required {
		errs = append(errs, fmt.Sprintf("Submode %s requires mode %s, but got %s", submode, required, mode))
	}

	return errs
}
