// Package tank turns raw deposit records from the winery backend into the
// views shown on the tank list, and decides where the app navigates when a
// tank or one of its actions is tapped.
package tank

import (
	"fmt"

	"github.com/goccy/go-json"

	"winery-tank-backend/internal/parse"
)

// State is the canonical display state of a tank.
type State int

const (
	StateEmpty State = iota
	StateOccupied
	StateInUse
)

var stateNames = map[State]string{
	StateEmpty:    "empty",
	StateOccupied: "occupied",
	StateInUse:    "in_use",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	name, ok := stateNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown tank state %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	for st, name := range stateNames {
		if name == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown tank state %q", b)
}

// Available reports whether the tank can receive new content.
func (s State) Available() bool {
	return s == StateEmpty
}

// RawDeposit is one record of the backend's "deposits with information" list.
type RawDeposit struct {
	DepositID      int64
	Name           string
	Content        *string
	ContentID      *int64
	Density        *float64
	Temperature    *float64
	Pressure       *float64
	EmptyIndicator *bool

	// Malformed is set when a field could not be decoded.
	Malformed bool
}

type rawDepositWire struct {
	DepositID      json.RawMessage `json:"idDeposito"`
	Name           json.RawMessage `json:"deposito"`
	Content        json.RawMessage `json:"conteudo"`
	ContentID      json.RawMessage `json:"idConteudo"`
	Density        json.RawMessage `json:"densidade"`
	Temperature    json.RawMessage `json:"temperatura"`
	Pressure       json.RawMessage `json:"pressao"`
	EmptyIndicator json.RawMessage `json:"tempMostro"`
}

// UnmarshalJSON decodes a record leniently. Only a payload that is not a
// JSON object fails; a field of the wrong shape marks the record Malformed.
func (r *RawDeposit) UnmarshalJSON(b []byte) error {
	var w rawDepositWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = RawDeposit{}

	var errs []error
	if id, err := parse.Int(w.DepositID); err != nil {
		errs = append(errs, err)
	} else if id == nil {
		errs = append(errs, errMissingDepositID)
	} else {
		r.DepositID = *id
	}
	if name, err := parse.String(w.Name); err != nil {
		errs = append(errs, err)
	} else if name != nil {
		r.Name = *name
	}

	var err error
	if r.Content, err = parse.String(w.Content); err != nil {
		errs = append(errs, err)
	}
	if r.ContentID, err = parse.Int(w.ContentID); err != nil {
		errs = append(errs, err)
	}
	if r.Density, err = parse.Float(w.Density); err != nil {
		errs = append(errs, err)
	}
	if r.Temperature, err = parse.Float(w.Temperature); err != nil {
		errs = append(errs, err)
	}
	if r.Pressure, err = parse.Float(w.Pressure); err != nil {
		errs = append(errs, err)
	}
	if r.EmptyIndicator, err = parse.Bool(w.EmptyIndicator); err != nil {
		errs = append(errs, err)
	}

	r.Malformed = len(errs) > 0
	return nil
}

// DecodeDeposits decodes the backend list. Entries that are not objects are
// kept as malformed records so one bad row never hides the others.
func DecodeDeposits(b []byte) ([]RawDeposit, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("failed to decode deposit list: %w", err)
	}
	deposits := make([]RawDeposit, len(items))
	for i, item := range items {
		if parse.IsNull(item) {
			deposits[i] = RawDeposit{Malformed: true}
			continue
		}
		if err := json.Unmarshal(item, &deposits[i]); err != nil {
			deposits[i] = RawDeposit{Malformed: true}
		}
	}
	return deposits, nil
}

// Content is the substance stored in a tank.
type Content struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Readings are the telemetry values shown on a tank card. Nominal readings
// are the ambient placeholder for tanks without content, not sensor data.
type Readings struct {
	Density     float64  `json:"density"`
	Temperature float64  `json:"temperature"`
	Pressure    *float64 `json:"pressure,omitempty"`
	Nominal     bool     `json:"nominal"`
}

// View is the display model of one tank.
type View struct {
	DepositID int64     `json:"depositId"`
	Title     string    `json:"title"`
	State     State     `json:"state"`
	Content   *Content  `json:"content,omitempty"`
	Readings  *Readings `json:"readings,omitempty"`
}
