// core/engine/modes.go
package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is returned by New and the mode parsers for unknown
// selector values or missing seeds.
var ErrInvalidConfiguration = errors.New("engine: invalid configuration")

// KoppaMode selects the bookkeeping rule applied to koppa when a trigger
// fires.
type KoppaMode uint8

const (
	KoppaAccumulate KoppaMode = iota // koppa += upsilon - beta
	KoppaFeed                        // bootstrap 1/1 when zero, then koppa *= upsilon/beta
	KoppaDump                        // koppa = upsilon/beta
)

func (m KoppaMode) String() string {
	switch m {
	case KoppaAccumulate:
		return "accumulate"
	case KoppaFeed:
		return "feed"
	case KoppaDump:
		return "dump"
	}
	return fmt.Sprintf("koppa(%d)", uint8(m))
}

// ParseKoppaMode maps a configuration name to its mode. The empty string
// selects the default.
func ParseKoppaMode(s string) (KoppaMode, error) {
	switch s {
	case "", "accumulate":
		return KoppaAccumulate, nil
	case "feed":
		return KoppaFeed, nil
	case "dump":
		return KoppaDump, nil
	}
	return 0, fmt.Errorf("koppa mode %q: %w", s, ErrInvalidConfiguration)
}

// TransformMode selects when the psi transform runs.
type TransformMode uint8

const (
	// TransformStepEnd runs the transform at microtick 11 only.
	TransformStepEnd TransformMode = iota
	// TransformOnTrigger additionally runs it immediately after any fired
	// trigger, whatever the microtick.
	TransformOnTrigger
)

func (m TransformMode) String() string {
	switch m {
	case TransformStepEnd:
		return "step_end"
	case TransformOnTrigger:
		return "on_trigger"
	}
	return fmt.Sprintf("transform(%d)", uint8(m))
}

func ParseTransformMode(s string) (TransformMode, error) {
	switch s {
	case "", "step_end":
		return TransformStepEnd, nil
	case "on_trigger":
		return TransformOnTrigger, nil
	}
	return 0, fmt.Errorf("transform mode %q: %w", s, ErrInvalidConfiguration)
}

// PropagationMode selects how the step-end imbalance is redistributed.
type PropagationMode uint8

const (
	PropQuietAdditive  PropagationMode = iota // upsilon += delta; beta -= delta
	PropAdditive                              // upsilon += diff;  beta -= diff
	PropMultiplicative                        // upsilon += upsilon*delta; beta -= beta*delta
	PropRotational                            // swap upsilon and beta
)

func (m PropagationMode) String() string {
	switch m {
	case PropQuietAdditive:
		return "quiet_additive"
	case PropAdditive:
		return "additive"
	case PropMultiplicative:
		return "multiplicative"
	case PropRotational:
		return "rotational"
	}
	return fmt.Sprintf("propagation(%d)", uint8(m))
}

func ParsePropagationMode(s string) (PropagationMode, error) {
	switch s {
	case "", "quiet_additive":
		return PropQuietAdditive, nil
	case "additive":
		return PropAdditive, nil
	case "multiplicative":
		return PropMultiplicative, nil
	case "rotational":
		return PropRotational, nil
	}
	return 0, fmt.Errorf("propagation mode %q: %w", s, ErrInvalidConfiguration)
}

// TriggerMap names which register each emission microtick tests. No single
// mapping is canonical across engine variants, so it is a named policy rather
// than a constant.
type TriggerMap uint8

const (
	// TriggerAlternating tests upsilon at microticks 1 and 7, beta at 4
	// and 10.
	TriggerAlternating TriggerMap = iota
	// TriggerUpsilonOnly tests upsilon at all four emission microticks.
	TriggerUpsilonOnly
)

func (m TriggerMap) String() string {
	switch m {
	case TriggerAlternating:
		return "alternating"
	case TriggerUpsilonOnly:
		return "upsilon_only"
	}
	return fmt.Sprintf("trigger(%d)", uint8(m))
}

func ParseTriggerMap(s string) (TriggerMap, error) {
	switch s {
	case "", "alternating":
		return TriggerAlternating, nil
	case "upsilon_only":
		return TriggerUpsilonOnly, nil
	}
	return 0, fmt.Errorf("trigger map %q: %w", s, ErrInvalidConfiguration)
}
