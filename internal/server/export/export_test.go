package export

import (
	"bytes"
	"errors"
	"iter"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/qsolog/internal/common"
	"github.com/dmitrijs2005/qsolog/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(mut func(q *models.Qso)) *models.Qso {
	q := models.NewQso("id", "u1", models.QsoFields{
		TheirCallsign: "SP1ABC",
		QsoDate:       models.Date(2024, time.March, 2),
		TimeOn:        models.Clock(14, 30, 5),
		Band:          "20m",
		Mode:          models.ModeCW,
	}, time.Now())
	if mut != nil {
		mut(&q)
	}
	return &q
}

func source(qs ...*models.Qso) iter.Seq2[*models.Qso, error] {
	return func(yield func(*models.Qso, error) bool) {
		for _, q := range qs {
			if !yield(q, nil) {
				return
			}
		}
	}
}

func collect(t *testing.T, chunks iter.Seq2[string, error]) string {
	t.Helper()
	var b strings.Builder
	for c, err := range chunks {
		require.NoError(t, err)
		b.WriteString(c)
	}
	return b.String()
}

func TestADIF_Header(t *testing.T) {
	out := collect(t, ADIF(source()))
	assert.Equal(t, "ADIF Export\n<ADIF_VER:5>3.1.4\n<PROGRAMID:6>QSOLOG\n<EOH>\n\n", out)
}

func TestADIF_PlainMode(t *testing.T) {
	out := adifCodec{}.Record(record(nil))
	assert.Equal(t,
		"<CALL:6>SP1ABC <QSO_DATE:8>20240302 <TIME_ON:6>143005 <BAND:3>20m <MODE:2>CW "+
			"<QSL_RCVD:4>NONE <LOTW_QSLRDATE:7>UNKNOWN <EQSL_QSLRDATE:7>UNKNOWN <EOR>\n",
		out)
	assert.NotContains(t, out, "<SUBMODE:")
}

func TestADIF_Submode(t *testing.T) {
	out := adifCodec{}.Record(record(func(q *models.Qso) {
		q.Mode = models.ModePSK
		q.Submode = models.SubmodePSK31
	}))
	assert.Contains(t, out, "<MODE:3>PSK ")
	assert.Contains(t, out, "<SUBMODE:5>PSK31 ")
}

func TestADIF_CustomMode(t *testing.T) {
	out := adifCodec{}.Record(record(func(q *models.Qso) {
		q.Mode = models.ModeDATA
		q.CustomMode = "VARAC"
	}))
	assert.Contains(t, out, "<MODE:4>DATA ")
	assert.Contains(t, out, "<APP_QSOLOG_CUSTOMMODE:5>VARAC ")
	assert.NotContains(t, out, "<SUBMODE:")
}

func TestADIF_CustomModeOverridesStoredMode(t *testing.T) {
	out := adifCodec{}.Record(record(func(q *models.Qso) {
		q.Mode = models.ModeMFSK
		q.Submode = models.SubmodeFT8
		q.CustomMode = "VARAC"
	}))
	assert.Contains(t, out, "<MODE:4>DATA ")
	assert.NotContains(t, out, "MFSK")
	assert.NotContains(t, out, "<SUBMODE:")
}

func TestADIF_OptionalFieldsInOrder(t *testing.T) {
	out := adifCodec{}.Record(record(func(q *models.Qso) {
		q.FrequencyKHz = numeric(14074, 0)
		q.RstSent = "599"
		q.RstRecv = "579"
		q.Qth = "Kraków"
		q.GridSquare = "JO90"
		q.Notes = "  "
	}))
	want := "<MODE:2>CW <FREQ:6>14.074 <RST_SENT:3>599 <RST_RCVD:3>579 <QTH:7>Kraków <GRIDSQUARE:4>JO90 <QSL_RCVD:4>NONE "
	assert.Contains(t, out, want)
	assert.NotContains(t, out, "<COMMENT:")
}

func TestCSV_Row(t *testing.T) {
	out := csvCodec{}.Record(record(func(q *models.Qso) {
		q.FrequencyKHz = numeric(14074000, -3)
		q.Mode = models.ModeMFSK
		q.Submode = models.SubmodeFT8
		q.Notes = `Nice QSO, "great signal"`
		q.LotwStatus = models.StatusConfirmed
	}))
	assert.Equal(t,
		`SP1ABC,2024-03-02,14:30:05,20m,14074.000,MFSK,FT8,,,,,,"Nice QSO, ""great signal""",NONE,CONFIRMED,UNKNOWN`+"\n",
		out)
}

func TestCSV_KeepsStoredModeWithCustomMode(t *testing.T) {
	out := csvCodec{}.Record(record(func(q *models.Qso) {
		q.Mode = models.ModeDATA
		q.CustomMode = "VARAC"
	}))
	assert.Contains(t, out, ",DATA,,VARAC,")
}

func TestEscapeCSV(t *testing.T) {
	tests := map[string]string{
		"":                         "",
		"   ":                      "",
		"plain":                    "plain",
		"a,b":                      `"a,b"`,
		`say "hi"`:                 `"say ""hi"""`,
		"line\nbreak":              "\"line\nbreak\"",
		`Nice QSO, "great signal"`: `"Nice QSO, ""great signal"""`,
	}
	for in, want := range tests {
		assert.Equal(t, want, escapeCSV(in), in)
	}
}

func TestCSV_HeaderFirst(t *testing.T) {
	out := collect(t, CSV(source(record(nil))))
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.TrimSuffix(csvHeader, "\n"), lines[0])
}

func TestEncode_PreservesSourceOrder(t *testing.T) {
	a := record(func(q *models.Qso) { q.TheirCallsign = "A1A" })
	b := record(func(q *models.Qso) { q.TheirCallsign = "B2B" })
	c := record(func(q *models.Qso) { q.TheirCallsign = "C3C" })

	out := collect(t, ADIF(source(a, b, c)))
	ia := strings.Index(out, "A1A")
	ib := strings.Index(out, "B2B")
	ic := strings.Index(out, "C3C")
	assert.True(t, ia < ib && ib < ic)
	assert.Equal(t, 3, strings.Count(out, "<EOR>\n"))
}

func TestEncode_ForwardsSourceError(t *testing.T) {
	boom := errors.New("boom")
	src := func(yield func(*models.Qso, error) bool) {
		if !yield(record(nil), nil) {
			return
		}
		yield(nil, boom)
	}

	var chunks int
	var gotErr error
	for _, err := range CSV(src) {
		if err != nil {
			gotErr = err
			break
		}
		chunks++
	}
	assert.Equal(t, 2, chunks)
	assert.ErrorIs(t, gotErr, boom)
}

func TestEncode_StopsSourceOnBreak(t *testing.T) {
	pulled := 0
	src := func(yield func(*models.Qso, error) bool) {
		for i := 0; i < 100; i++ {
			pulled++
			if !yield(record(nil), nil) {
				return
			}
		}
	}

	n := 0
	for range ADIF(src) {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 2, pulled)
}

func TestWriteTo(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteTo(&buf, ADIF(source(record(nil))))
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.True(t, strings.HasPrefix(buf.String(), "ADIF Export\n"))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("ADIF")
	require.NoError(t, err)
	assert.Equal(t, FormatADIF, f)
	assert.Equal(t, "adi", f.Extension())

	f, err = ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, "csv", f.Extension())
	assert.Equal(t, csvCodec{}, CodecFor(f))

	_, err = ParseFormat("xml")
	assert.ErrorIs(t, err, common.ErrorValidation)
}
