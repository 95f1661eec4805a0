package ctl

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/qsolog/internal/server/export"
	"github.com/dmitrijs2005/qsolog/internal/server/models"
	"github.com/dmitrijs2005/qsolog/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/qsolog/internal/server/services"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// createFile is swapped in tests.
var createFile = func(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

type exportOptions struct {
	userID string
	format string
	from   string
	to     string
	out    string
}

// parse validates the flags before anything touches the database.
func (o *exportOptions) parse() (export.Format, models.DateRange, error) {
	var dr models.DateRange

	o.userID = strings.TrimSpace(o.userID)
	if o.userID == "" {
		return "", dr, errors.New("--user is required")
	}
	if _, err := uuid.Parse(o.userID); err != nil {
		return "", dr, fmt.Errorf("--user must be a UUID: %q", o.userID)
	}

	f, err := export.ParseFormat(o.format)
	if err != nil {
		return "", dr, err
	}

	if o.from != "" {
		if dr.From, err = models.ParseDate(o.from); err != nil {
			return "", dr, fmt.Errorf("--from: %w", err)
		}
	}
	if o.to != "" {
		if dr.To, err = models.ParseDate(o.to); err != nil {
			return "", dr, fmt.Errorf("--to: %w", err)
		}
	}
	if dr.HasFrom() && dr.HasTo() && dr.To.Before(dr.From) {
		return "", dr, errors.New("--from must not be after --to")
	}
	return f, dr, nil
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	eo := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an operator's log as ADIF or CSV",
		Long:  "Stream an operator's contacts in chronological order to a file or stdout.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, dates, err := eo.parse()
			if err != nil {
				return err
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			log := opts.logger(cfg, cmd.ErrOrStderr())

			return opts.withDB(cfg, func(db *sql.DB, rm *repomanager.PostgresRepositoryManager) (err error) {
				var w io.Writer = cmd.OutOrStdout()
				if eo.out != "" {
					f, err := createFile(eo.out)
					if err != nil {
						return fmt.Errorf("create %s: %w", eo.out, err)
					}
					defer func() {
						if cerr := f.Close(); cerr != nil && err == nil {
							err = fmt.Errorf("close %s: %w", eo.out, cerr)
						}
					}()
					w = f
				}

				svc := services.NewExportService(db, rm, nil, log)
				n, err := export.WriteTo(w, svc.Stream(cmd.Context(), eo.userID, format, dates))
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				log.Info(cmd.Context(), "export written",
					"format", format,
					"bytes", n,
					"suggested_filename", services.Filename(services.FilePrefix, dates, format.Extension()))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&eo.userID, "user", "", "Operator UUID whose log is exported")
	cmd.Flags().StringVar(&eo.format, "format", string(export.FormatADIF), "Export format (adif|csv)")
	cmd.Flags().StringVar(&eo.from, "from", "", "First QSO date, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&eo.to, "to", "", "Last QSO date, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&eo.out, "out", "o", "", "Output file (default stdout)")

	return cmd
}
