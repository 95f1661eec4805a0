package export

import (
	"strconv"
	"strings"

	"github.com/dmitrijs2005/qsolog/internal/common"
	"github.com/dmitrijs2005/qsolog/internal/server/models"
)

// CustomModeField is the vendor field carrying an operator-defined mode.
const CustomModeField = "APP_" + common.ProgramID + "_CUSTOMMODE"

const adifHeader = "ADIF Export\n" +
	"<ADIF_VER:5>3.1.4\n" +
	"<PROGRAMID:6>" + common.ProgramID + "\n" +
	"<EOH>\n\n"

type adifCodec struct{}

func (adifCodec) Header() string { return adifHeader }

func (adifCodec) Record(q *models.Qso) string {
	var b strings.Builder

	writeField(&b, "CALL", q.TheirCallsign)
	writeField(&b, "QSO_DATE", q.QsoDate.Format("20060102"))
	writeField(&b, "TIME_ON", q.TimeOn.Format("150405"))
	writeField(&b, "BAND", q.Band)

	if strings.TrimSpace(q.CustomMode) != "" {
		writeField(&b, "MODE", string(models.ModeDATA))
		writeField(&b, CustomModeField, q.CustomMode)
	} else {
		writeField(&b, "MODE", string(q.Mode))
		writeField(&b, "SUBMODE", string(q.Submode))
	}

	if mhz, ok := FrequencyMHz(q.FrequencyKHz); ok {
		writeField(&b, "FREQ", mhz)
	}
	writeField(&b, "RST_SENT", q.RstSent)
	writeField(&b, "RST_RCVD", q.RstRecv)
	writeField(&b, "QTH", q.Qth)
	writeField(&b, "GRIDSQUARE", q.GridSquare)
	writeField(&b, "COMMENT", q.Notes)

	// Status tags go under the *_QSLRDATE names that ADIF reserves for dates.
	writeField(&b, "QSL_RCVD", string(q.QslStatus))
	writeField(&b, "LOTW_QSLRDATE", string(q.LotwStatus))
	writeField(&b, "EQSL_QSLRDATE", string(q.EqslStatus))

	b.WriteString("<EOR>\n")
	return b.String()
}

// writeField appends <NAME:len>value followed by a space. Blank values are
// skipped. The length is the UTF-8 byte count of value.
func writeField(b *strings.Builder, name, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	b.WriteByte('<')
	b.WriteString(name)
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(len(value)))
	b.WriteByte('>')
	b.WriteString(value)
	b.WriteByte(' ')
}
