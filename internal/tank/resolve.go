package tank

import (
	"errors"
	"fmt"
)

// Ambient values shown for tanks without content.
const (
	NominalDensity     = 0.0
	NominalTemperature = 20.0
)

// Resolve derives the display view of a deposit. It is total: every
// combination of missing fields yields a view.
func Resolve(raw RawDeposit) View {
	v := View{
		DepositID: raw.DepositID,
		Title:     raw.Name,
		State:     StateEmpty,
	}
	if raw.Malformed {
		return v
	}

	if raw.Content != nil {
		v.State = StateInUse
		v.Content = &Content{Name: *raw.Content}
		if raw.ContentID != nil {
			v.Content.ID = *raw.ContentID
		}
		if raw.Temperature != nil {
			v.Readings = &Readings{
				Temperature: *raw.Temperature,
				Pressure:    copyFloat(raw.Pressure),
			}
			if raw.Density != nil {
				v.Readings.Density = *raw.Density
			}
		}
		return v
	}

	if raw.EmptyIndicator != nil && !*raw.EmptyIndicator {
		v.State = StateOccupied
	}
	v.Readings = &Readings{
		Density:     NominalDensity,
		Temperature: NominalTemperature,
		Nominal:     true,
	}
	return v
}

// ResolveAll resolves every record, preserving order.
func ResolveAll(raws []RawDeposit) []View {
	views := make([]View, len(raws))
	for i, raw := range raws {
		views[i] = Resolve(raw)
	}
	return views
}

// Validate reports data-integrity problems that Resolve tolerates.
func Validate(raw RawDeposit) error {
	var errs []error
	if raw.Malformed {
		errs = append(errs, ErrMalformed)
	}
	if raw.Content != nil && raw.ContentID == nil {
		errs = append(errs, ErrMissingContentID)
	}
	if raw.Content == nil && raw.ContentID != nil {
		errs = append(errs, ErrOrphanContentID)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("deposit %d: %w", raw.DepositID, errors.Join(errs...))
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
