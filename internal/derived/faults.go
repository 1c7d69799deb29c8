package derived

import (
	"math"
	"strings"
	"time"

	"github.com/nerrad567/rotex-can-core/internal/catalog"
	"github.com/nerrad567/rotex-can-core/internal/fault"
)

// Fault names a plant fault appended to the error code text.
type Fault string

// Detected plant faults.
const (
	FaultDHWValve    Fault = "3UV DHW defect"
	FaultBypassValve Fault = "3UV BPV defect"
	FaultLowSpread   Fault = "low temperature spread"
	FaultMissingFlow Fault = "missing flow"
)

const faultSuffixMarker = "|"

// Confirmation windows.
const (
	DHWValveWindow    = 10 * time.Minute
	BypassValveWindow = 10 * time.Minute
	LowSpreadWindow   = 20 * time.Minute
	MissingFlowWindow = 5 * time.Minute
)

const (
	minFlowForValveCheck = 600.0
	dhwMinTemperature    = 48.0
	bypassFullyOpen      = 100.0
)

// Thresholds are the installation-specific corrections used by the valve
// checks.
type Thresholds struct {
	OffsetTV        float64
	OffsetTVBH      float64
	OffsetTR        float64
	MaxSpreadTVBHTV float64
	MaxSpreadTVBHTR float64
}

// Annotation is the result of one evaluation.
type Annotation struct {
	// Text is the error code with a suffix per confirmed fault.
	Text string

	// Active lists every confirmed fault.
	Active []Fault

	// Confirmed lists faults confirmed for the first time in their
	// current streak.
	Confirmed []Fault
}

// Annotator evaluates the fault conditions against current values.
type Annotator struct {
	store      Store
	thresholds Thresholds
	logger     Logger

	dhwValve    *fault.Debouncer
	bypassValve *fault.Debouncer
	lowSpread   *fault.Debouncer
	missingFlow *fault.Debouncer
}

// NewAnnotator creates an annotator with the standard confirmation windows.
func NewAnnotator(store Store, thresholds Thresholds, logger Logger) *Annotator {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Annotator{
		store:       store,
		thresholds:  thresholds,
		logger:      logger,
		dhwValve:    fault.NewDebouncer(DHWValveWindow, false),
		bypassValve: fault.NewDebouncer(BypassValveWindow, false),
		lowSpread:   fault.NewDebouncer(LowSpreadWindow, true),
		missingFlow: fault.NewDebouncer(MissingFlowWindow, false),
	}
}

// ResetSpread clears the low-spread debouncer, including its good-case latch.
func (a *Annotator) ResetSpread() {
	a.lowSpread.Reset()
}

// MinSpread returns the minimum acceptable supply/return spread while the
// compressor runs at supply temperature tv. The quartic is fitted to
// 27 °C→0.3, 29 °C→1.2, 35 °C→2.5, 40 °C→3.0 and 50 °C→4.0.
func MinSpread(tv float64) float64 {
	return -0.00004012*math.Pow(tv, 4) +
		0.006683*math.Pow(tv, 3) -
		0.4152*math.Pow(tv, 2) +
		11.5006*tv -
		117.7908
}

// Annotate evaluates all four conditions at now and returns base with the
// confirmed faults appended. Conditions whose inputs are missing are not
// observed.
func (a *Annotator) Annotate(base string, now time.Time) Annotation {
	out := Annotation{Text: base}
	observe := func(f Fault, d *fault.Debouncer, isError bool) {
		confirmed, first := d.Observe(isError, now)
		if !confirmed {
			return
		}
		out.Active = append(out.Active, f)
		if first {
			out.Confirmed = append(out.Confirmed, f)
		}
	}

	tvRaw, okTV := a.store.Float(catalog.TV)
	tvbhRaw, okTVBH := a.store.Float(catalog.TVBH)
	trRaw, okTR := a.store.Float(catalog.TR)
	if !okTV || !okTVBH || !okTR {
		a.logger.Debug("fault annotation skipped", "reason", "temperatures missing")
		return out
	}
	tv := tvRaw + a.thresholds.OffsetTV
	tvbh := tvbhRaw + a.thresholds.OffsetTVBH
	tr := trRaw + a.thresholds.OffsetTR

	flow, okFlow := a.store.Float(catalog.FlowRate)
	mixer, okMixer := a.store.Float(catalog.DHWMixerPosition)
	bpv, okBPV := a.store.Float(catalog.BypassValve)
	state, okState := a.store.Text(catalog.ModeOfOperating)
	compressor, okCompressor := a.store.Bool(catalog.StatusCompressor)

	if okFlow && okMixer {
		isError := flow > minFlowForValveCheck && mixer == 0 && tvbh > tv+a.thresholds.MaxSpreadTVBHTV
		a.logger.Debug("dhw valve check", "tv", tv, "tvbh", tvbh, "mixer", mixer, "flow", flow, "error", isError)
		observe(FaultDHWValve, a.dhwValve, isError)
	}

	if okFlow && okBPV {
		isError := flow > minFlowForValveCheck && bpv == bypassFullyOpen && tvbh > tr+a.thresholds.MaxSpreadTVBHTR
		a.logger.Debug("bypass valve check", "tvbh", tvbh, "tr", tr, "bpv", bpv, "flow", flow, "error", isError)
		observe(FaultBypassValve, a.bypassValve, isError)
	}

	if okState && okCompressor && compressor && (state == catalog.StateHeating || state == catalog.StateHotWater) {
		if spread, ok := a.store.Float(catalog.TemperatureSpread); ok {
			minSpread := MinSpread(tvRaw)
			isError := spread < minSpread
			a.logger.Debug("spread check", "state", state, "spread", spread, "min_spread", minSpread,
				"good_seen", a.lowSpread.GoodSeen(), "error", isError)
			observe(FaultLowSpread, a.lowSpread, isError)
		}
	}

	tdhw, okTDHW := a.store.Float(catalog.TDHW1)
	if okState && okFlow && okMixer && okCompressor && okTDHW {
		isError := state == catalog.StateHotWater && tdhw < dhwMinTemperature &&
			(flow == 0 || mixer == 0 || !compressor)
		observe(FaultMissingFlow, a.missingFlow, isError)
	}

	for _, f := range out.Active {
		out.Text += faultSuffixMarker + string(f)
	}
	for _, f := range out.Confirmed {
		a.logger.Warn("fault confirmed", "fault", string(f), "error_code", base)
	}
	return out
}

// StripFaults removes fault suffixes from an annotated error text.
func StripFaults(text string) string {
	base, _, _ := strings.Cut(text, faultSuffixMarker)
	return base
}
