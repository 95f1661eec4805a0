package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/qsolog/internal/server/models"
)

// dateRange reads the optional inclusive from/to query parameters.
func dateRange(r *http.Request) (models.DateRange, []string) {
	var (
		dr   models.DateRange
		errs []string
	)
	q := r.URL.Query()

	if v := strings.TrimSpace(q.Get("from")); v != "" {
		d, err := models.ParseDate(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Invalid from '%s': expected YYYY-MM-DD", v))
		}
		dr.From = d
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		d, err := models.ParseDate(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Invalid to '%s': expected YYYY-MM-DD", v))
		}
		dr.To = d
	}
	if dr.HasFrom() && dr.HasTo() && dr.To.Before(dr.From) {
		errs = append(errs, "from must not be after to")
	}
	return dr, errs
}

// intParam reads a non-negative integer query parameter; absent means 0.
func intParam(r *http.Request, name string) (int, string) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, ""
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Sprintf("Invalid %s '%s': expected a non-negative integer", name, v)
	}
	return n, ""
}
