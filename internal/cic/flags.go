package cic

import (
	"fmt"
	"strconv"
	"strings"

	"cic2nf/internal/core/model"
)

// NumFlagColumns is the number of TCP flag counters in a CIC row.
const NumFlagColumns = 12

// Positions inside the flag counter block, in dataset column order.
const (
	flagFwdPSH = iota
	flagBwdPSH
	flagFwdURG
	flagBwdURG
	flagFIN
	flagSYN
	flagRST
	flagPSH
	flagACK
	flagURG
	flagCWR
	flagECE
)

var flagCounterNames = [NumFlagColumns]string{
	"Fwd PSH Flags", "Bwd PSH Flags", "Fwd URG Flags", "Bwd URG Flags",
	"FIN Flag Count", "SYN Flag Count", "RST Flag Count", "PSH Flag Count",
	"ACK Flag Count", "URG Flag Count", "CWR Flag Count", "ECE Flag Count",
}

// DecodeFlags collapses the twelve flag counters into a presence set. PSH and
// URG are set if any of their forward, backward or aggregate counters is
// non-zero; the other flags map one to one.
func DecodeFlags(counters [NumFlagColumns]string) (model.Flags, error) {
	var nonZero [NumFlagColumns]bool
	for i, s := range counters {
		n, err := ParseCount(s)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", flagCounterNames[i], err)
		}
		nonZero[i] = n != 0
	}

	var f model.Flags
	set := func(flag model.Flags, on bool) {
		if on {
			f |= flag
		}
	}
	set(model.FlagPSH, nonZero[flagFwdPSH] || nonZero[flagBwdPSH] || nonZero[flagPSH])
	set(model.FlagURG, nonZero[flagFwdURG] || nonZero[flagBwdURG] || nonZero[flagURG])
	set(model.FlagFIN, nonZero[flagFIN])
	set(model.FlagSYN, nonZero[flagSYN])
	set(model.FlagRST, nonZero[flagRST])
	set(model.FlagACK, nonZero[flagACK])
	set(model.FlagCWR, nonZero[flagCWR])
	set(model.FlagECE, nonZero[flagECE])
	return f, nil
}

// ParseCount parses a plain non-negative decimal integer.
func ParseCount(s string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(s), 10, 64)
}
