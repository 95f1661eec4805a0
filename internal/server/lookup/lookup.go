// Package lookup resolves callsigns against an external directory. HamQTH
// is used when credentials are configured; otherwise every lookup misses.
package lookup

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/qsolog/internal/common"
	"github.com/dmitrijs2005/qsolog/internal/logging"
	"github.com/dmitrijs2005/qsolog/internal/server/config"
)

// Result is what the directory knows about a station. Empty fields are
// unknown.
type Result struct {
	Callsign string
	Name     string
	Qth      string
	Grid     string
	Country  string
}

func (r *Result) empty() bool {
	return r.Name == "" && r.Qth == "" && r.Grid == "" && r.Country == ""
}

// Provider looks up a callsign. A miss, including an unreachable directory,
// is reported as common.ErrorNotFound.
type Provider interface {
	Lookup(ctx context.Context, callsign string) (*Result, error)
}

// New returns the HamQTH provider when both credentials are set and the
// always-missing provider otherwise.
func New(c *config.Config, l logging.Logger) Provider {
	if c.HamQTHUser == "" || c.HamQTHPassword == "" {
		l.Info(context.Background(), "callsign lookup disabled: no HamQTH credentials")
		return Disabled{}
	}
	return NewHamQTH(c.HamQTHBaseURL, c.HamQTHUser, c.HamQTHPassword, l)
}

// Disabled never finds anything.
type Disabled struct{}

func (Disabled) Lookup(context.Context, string) (*Result, error) {
	return nil, common.ErrorNotFound
}

// Normalize upper-cases and trims a callsign.
func Normalize(callsign string) string {
	return strings.ToUpper(strings.TrimSpace(callsign))
}
