package export

import (
	"strings"

	"github.com/dmitrijs2005/qsolog/internal/server/models"
)

const csvHeader = "Callsign,Date,Time,Band,Frequency (kHz),Mode,Submode,Custom Mode," +
	"RST Sent,RST Recv,QTH,Grid Square,Notes," +
	"QSL Status,LoTW Status,eQSL Status\n"

type csvCodec struct{}

func (csvCodec) Header() string { return csvHeader }

func (csvCodec) Record(q *models.Qso) string {
	cells := []string{
		escapeCSV(q.TheirCallsign),
		q.QsoDate.Format(models.DateLayout),
		q.TimeOn.Format(models.TimeLayout),
		escapeCSV(q.Band),
		FormatDecimal(q.FrequencyKHz),
		string(q.Mode),
		string(q.Submode),
		escapeCSV(q.CustomMode),
		escapeCSV(q.RstSent),
		escapeCSV(q.RstRecv),
		escapeCSV(q.Qth),
		escapeCSV(q.GridSquare),
		escapeCSV(q.Notes),
		string(q.QslStatus),
		string(q.LotwStatus),
		string(q.EqslStatus),
	}
	return strings.Join(cells, ",") + "\n"
}

// escapeCSV quotes a cell only when it holds a comma, quote or newline.
func escapeCSV(v string) string {
	if strings.TrimSpace(v) == "" {
		return ""
	}
	if strings.ContainsAny(v, ",\"\n") {
		return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
	}
	return v
}
