package cic

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Hint is caller-supplied context for timestamps that lack an AM/PM marker.
type Hint int

const (
	NoHint Hint = iota
	Morning
	Evening
)

func (h Hint) String() string {
	switch h {
	case Morning:
		return "morning"
	case Evening:
		return "evening"
	default:
		return "none"
	}
}

// ParseHint accepts the short and long spellings used on the command line.
func ParseHint(s string) (Hint, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "n", "none":
		return NoHint, nil
	case "1", "a", "am", "morning":
		return Morning, nil
	case "2", "p", "pm", "evening":
		return Evening, nil
	default:
		return NoHint, fmt.Errorf("invalid time-of-day hint %q", s)
	}
}

// ExpandHints returns exactly n hints, one per input file. A short list is
// padded with its last element and a long one truncated; both are logged.
func ExpandHints(hints []Hint, n int, log zerolog.Logger) []Hint {
	out := make([]Hint, n)
	if len(hints) == 0 {
		return out
	}
	switch {
	case len(hints) > n:
		log.Warn().Int("excess", len(hints)-n).Msg("Time-of-day hint list is longer than the input list, truncating")
	case len(hints) < n:
		log.Warn().Int("missing", n-len(hints)).Msg("Time-of-day hint list is shorter than the input list, repeating the last hint")
	}
	last := hints[len(hints)-1]
	for i := range out {
		if i < len(hints) {
			out[i] = hints[i]
		} else {
			out[i] = last
		}
	}
	return out
}

// Phase is the half-day segment a bare 12-hour clock is assumed to be in.
type Phase int

const (
	// PhaseMorning covers hours 01-11 (01:00-11:59).
	PhaseMorning Phase = iota
	// PhaseNoon covers hours 11, 12, 01 (11:00-13:59).
	PhaseNoon
	// PhaseAfternoon covers hours 01-11 (13:00-23:59).
	PhaseAfternoon
	// PhaseMidnight covers hours 11, 12, 01 (23:00-01:59).
	PhaseMidnight
)

func (p Phase) String() string {
	switch p {
	case PhaseNoon:
		return "noon"
	case PhaseAfternoon:
		return "afternoon"
	case PhaseMidnight:
		return "midnight"
	default:
		return "morning"
	}
}

var (
	// ErrMissingHint means a timestamp matched no layout and the file has no
	// AM/PM hint that could make it parse.
	ErrMissingHint = errors.New("timestamp needs a morning or evening hint")
	// ErrUnknownTimestampFormat means a timestamp matched no known layout.
	ErrUnknownTimestampFormat = errors.New("timestamp matches no known layout")
)

// ExplicitLayouts are tried in order by explicit-mode resolvers.
var ExplicitLayouts = []string{
	"2/1/2006 3:04 PM",              // 3/7/2017 9:59 PM
	"2/1/2006 3:04:05 PM",           // 3/7/2017 9:59:59 PM
	"2006-01-02 15:04:05.999999999", // 2018-12-01 10:51:39.813448
	"2/1/2006 15:04:05",             // 3/7/2017 21:59:59
	"2/1/2006 15:04",                // 3/7/2017 21:59
	"2/1/2006 3:04 pm",              // 3/7/2017 9:59 pm
	"2/1/2006 3:04:05 pm",           // 3/7/2017 9:59:59 pm
}

// Bare 12-hour layouts. Monday files of CIC-IDS-2017 keep the seconds.
const (
	bareLayoutMinutes = "2/1/2006 15:04"
	bareLayoutSeconds = "2/1/2006 15:04:05"
)

const twelveHours = 12 * time.Hour

// ParseResult is a resolved timestamp and the index of the layout that read it.
type ParseResult struct {
	Time   time.Time
	Layout int
}

// TimestampResolver turns textual timestamps into absolute times.
//
// In explicit mode the text is parsed against a layout list, last success
// first. In bare 12-hour mode the text is read as a 24-hour time and then
// corrected by a four-phase state machine that follows the rows of one file.
// The phase machine assumes roughly non-decreasing timestamps; out-of-order
// input can desynchronize it and is not detected.
//
// A resolver is owned by one file session and must not be shared.
type TimestampResolver struct {
	layouts []string
	last    int
	suffix  string
	hint    Hint

	bare  bool
	phase Phase
}

// NewExplicitResolver returns an explicit-mode resolver. A Morning or Evening
// hint appends " AM" or " PM" to every timestamp before parsing.
func NewExplicitResolver(layouts []string, hint Hint) *TimestampResolver {
	r := &TimestampResolver{layouts: layouts, hint: hint}
	switch hint {
	case Morning:
		r.suffix = " AM"
	case Evening:
		r.suffix = " PM"
	}
	return r
}

// NewBareResolver returns a bare 12-hour resolver starting in phase.
func NewBareResolver(layouts []string, phase Phase) *TimestampResolver {
	return &TimestampResolver{layouts: layouts, bare: true, phase: phase}
}

// NewResolverForFile picks the mode for one input file. Sources with a bare
// 12-hour clock and no caller hint fall back to the phase machine seeded from
// the file name.
func NewResolverForFile(schema Schema, filename string, hint Hint, log zerolog.Logger) *TimestampResolver {
	if !schema.TwelveHourClock || hint != NoHint {
		return NewExplicitResolver(ExplicitLayouts, hint)
	}
	layouts := []string{bareLayoutMinutes, bareLayoutSeconds}
	if strings.HasPrefix(filename, "Monday") {
		layouts = []string{bareLayoutSeconds, bareLayoutMinutes}
	}
	return NewBareResolver(layouts, InferPhase(filename, log))
}

// InferPhase seeds the phase machine from the CIC-IDS-2017 file naming
// convention, e.g. "Tuesday-WorkingHours.pcap_ISCX.csv" or
// "Friday-WorkingHours-Afternoon-DDos.pcap_ISCX.csv".
func InferPhase(filename string, log zerolog.Logger) Phase {
	if strings.Contains(filename, "Morning") {
		return PhaseMorning
	}
	for _, prefix := range []string{"Monday", "Tuesday", "Wednesday"} {
		if strings.HasPrefix(filename, prefix) {
			return PhaseMorning
		}
	}
	if strings.Contains(filename, "Afternoon") {
		return PhaseAfternoon
	}
	log.Warn().Str("file", filename).Msg("Input file name is not standardized, assuming the morning")
	return PhaseMorning
}

// Bare reports whether the resolver runs the 12-hour phase machine.
func (r *TimestampResolver) Bare() bool {
	return r.bare
}

// Phase returns the current phase of a bare resolver.
func (r *TimestampResolver) Phase() Phase {
	return r.phase
}

// Resolve parses one timestamp and advances the resolver state.
func (r *TimestampResolver) Resolve(s string) (ParseResult, error) {
	res, err := r.match(strings.TrimSpace(s) + r.suffix)
	if err != nil {
		return ParseResult{}, err
	}
	if r.bare {
		res.Time = r.correct(res.Time)
	}
	return res, nil
}

// match tries the cached layout first, then every other layout in order.
func (r *TimestampResolver) match(s string) (ParseResult, error) {
	if t, err := time.Parse(r.layouts[r.last], s); err == nil {
		return ParseResult{Time: t, Layout: r.last}, nil
	}
	for i, layout := range r.layouts {
		if i == r.last {
			continue
		}
		if t, err := time.Parse(layout, s); err == nil {
			r.last = i
			return ParseResult{Time: t, Layout: i}, nil
		}
	}
	if !r.bare && r.hint == NoHint {
		return ParseResult{}, fmt.Errorf("%q: %w", s, ErrMissingHint)
	}
	return ParseResult{}, fmt.Errorf("%q: %w", s, ErrUnknownTimestampFormat)
}

// correct applies the phase-dependent 12-hour correction. 12 AM is 00:00 and
// 12 PM is 12:00; the source never writes hour 0.
func (r *TimestampResolver) correct(t time.Time) time.Time {
	hour := t.Hour()
	switch r.phase {
	case PhaseMorning:
		if hour == 12 {
			r.phase = PhaseNoon
		}
	case PhaseNoon:
		if hour < 11 {
			t = t.Add(twelveHours)
		}
		// checked after the shift, so a file seeded as Morning stays in Noon
		if t.Hour() == 2 {
			r.phase = PhaseAfternoon
		}
	case PhaseAfternoon:
		if hour == 12 {
			t = t.Add(-twelveHours)
			r.phase = PhaseMidnight
		} else {
			t = t.Add(twelveHours)
		}
	case PhaseMidnight:
		switch hour {
		case 11:
			t = t.Add(twelveHours)
		case 12:
			t = t.Add(-twelveHours)
		case 2:
			r.phase = PhaseMorning
		}
	}
	return t
}
