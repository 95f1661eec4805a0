package models

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/qsolog/internal/common"
)

// Mode is a coarse ADIF transmission mode.
type Mode string

const (
	ModeCW   Mode = "CW"
	ModeSSB  Mode = "SSB"
	ModeAM   Mode = "AM"
	ModeFM   Mode = "FM"
	ModeRTTY Mode = "RTTY"
	ModePSK  Mode = "PSK"
	ModeMFSK Mode = "MFSK"
	ModeDATA Mode = "DATA"
)

// Modes lists every accepted mode in declaration order.
var Modes = []Mode{ModeCW, ModeSSB, ModeAM, ModeFM, ModeRTTY, ModePSK, ModeMFSK, ModeDATA}

// Submode is a specific digital protocol variant of a Mode.
// The zero value means "no submode".
type Submode string

const (
	SubmodeNone      Submode = ""
	SubmodeFT8       Submode = "FT8"
	SubmodeFT4       Submode = "FT4"
	SubmodeJS8       Submode = "JS8"
	SubmodePSK31     Submode = "PSK31"
	SubmodeJT65      Submode = "JT65"
	SubmodeJT9       Submode = "JT9"
	SubmodeOLIVIA    Submode = "OLIVIA"
	SubmodeCONTESTIA Submode = "CONTESTIA"
	SubmodePSK63     Submode = "PSK63"
	SubmodePSK125    Submode = "PSK125"
)

// Submodes lists every accepted submode in declaration order.
var Submodes = []Submode{
	SubmodeFT8, SubmodeFT4, SubmodeJS8, SubmodePSK31,
	SubmodeJT65, SubmodeJT9, SubmodeOLIVIA, SubmodeCONTESTIA, SubmodePSK63, SubmodePSK125,
}

// IsSet reports whether a submode is present.
func (s Submode) IsSet() bool { return s != SubmodeNone }

// ParseMode converts a wire tag into a Mode. Tags are matched exactly.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q: %w", s, common.ErrorValidation)
}

// ParseSubmode converts a wire tag into a Submode. A blank tag yields SubmodeNone.
func ParseSubmode(s string) (Submode, error) {
	if strings.TrimSpace(s) == "" {
		return SubmodeNone, nil
	}
	for _, sm := range Submodes {
		if string(sm) == s {
			return sm, nil
		}
	}
	return SubmodeNone, fmt.Errorf("unknown submode %q: %w", s, common.ErrorValidation)
}

// ConfirmationStatus tracks whether the other station confirmed a contact
// on one confirmation channel. The zero value means "not recorded".
type ConfirmationStatus string

const (
	StatusNone      ConfirmationStatus = "NONE"
	StatusUnknown   ConfirmationStatus = "UNKNOWN"
	StatusSent      ConfirmationStatus = "SENT"
	StatusConfirmed ConfirmationStatus = "CONFIRMED"
)

// IsSet reports whether a status value is present.
func (s ConfirmationStatus) IsSet() bool { return s != "" }

// Channel identifies one of the confirmation paths a contact can be
// acknowledged through.
type Channel int

const (
	// ChannelQSL is the paper QSL card.
	ChannelQSL Channel = iota
	// ChannelLoTW is ARRL Logbook of The World.
	ChannelLoTW
	// ChannelEQSL is eQSL.cc.
	ChannelEQSL
)

var channelNames = map[Channel]string{
	ChannelQSL:  "qsl",
	ChannelLoTW: "lotw",
	ChannelEQSL: "eqsl",
}

// channelStatuses maps each channel to the tags it accepts. The first tag is
// the initial "not yet confirmed" value for new records.
var channelStatuses = map[Channel][]ConfirmationStatus{
	ChannelQSL:  {StatusNone, StatusSent, StatusConfirmed},
	ChannelLoTW: {StatusUnknown, StatusSent, StatusConfirmed},
	ChannelEQSL: {StatusUnknown, StatusSent, StatusConfirmed},
}

func (c Channel) String() string { return channelNames[c] }

// Initial returns the status a freshly created record carries on this channel.
func (c Channel) Initial() ConfirmationStatus {
	return channelStatuses[c][0]
}

// ParseConfirmationStatus validates a wire tag for the given channel.
// A blank tag yields the zero status (meaning "leave unchanged" in patches).
func ParseConfirmationStatus(c Channel, s string) (ConfirmationStatus, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	for _, st := range channelStatuses[c] {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown %s status %q: %w", c, s, common.ErrorValidation)
}
