package enums

import "fmt"

// WizardStep is a state of the print-order wizard's finite state
// machine. Config is initial; Success and Failed are terminal.
type WizardStep string

const (
	WizardStepConfig   WizardStep = "config"
	WizardStepShipping WizardStep = "shipping"
	WizardStepPayment  WizardStep = "payment"
	WizardStepSuccess  WizardStep = "success"
	WizardStepFailed   WizardStep = "failed"
)

var validWizardSteps = []WizardStep{
	WizardStepConfig,
	WizardStepShipping,
	WizardStepPayment,
	WizardStepSuccess,
	WizardStepFailed,
}

// String implements fmt.Stringer.
func (w WizardStep) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WizardStep.
func (w WizardStep) IsValid() bool {
	for _, candidate := range validWizardSteps {
		if candidate == w {
			return true
		}
	}
	return false
}

// Terminal reports whether the step ends the wizard session.
func (w WizardStep) Terminal() bool {
	return w == WizardStepSuccess || w == WizardStepFailed
}

// ParseWizardStep converts raw input into a WizardStep.
func ParseWizardStep(value string) (WizardStep, error) {
	for _, candidate := range validWizardSteps {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wizard step %q", value)
}
