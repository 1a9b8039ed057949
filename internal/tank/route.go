package tank

import (
	"fmt"
	"strings"
)

// Route templates understood by the mobile app's router.
const (
	RouteTankDetail    = "/tank/[tank]"
	RouteEmptyTank     = "/(tankControl)/[emptyTank]"
	RouteAddBaseWine   = "/(tankControl)/tank/addBaseWine/[addBaseWine]"
	RouteTransferTank  = "/(tankControl)/tank/realizarTrasfega/[trasfega]"
	RouteStartPeDeCuba = "/(tankControl)/tank/addPeDeCuba/[addPeDeCuba]"
)

const (
	paramTank      = "tank"
	paramDepositID = "depositId"
	paramContent   = "content"
	paramContentID = "contentId"
)

// Target is a navigation destination. Param values are string or int64.
type Target struct {
	Route  string         `json:"route"`
	Params map[string]any `json:"params"`
}

// Action is one of the operations offered on the empty tank menu.
type Action int

const (
	ActionAddBaseWine Action = iota + 1
	ActionTransferTank
	ActionStartFermentationBase
)

type actionInfo struct {
	name  string
	label string
	route string
}

var actionCatalog = map[Action]actionInfo{
	ActionAddBaseWine:           {name: "AddBaseWine", label: "Adicionar Vinho Base", route: RouteAddBaseWine},
	ActionTransferTank:          {name: "TransferTank", label: "Realizar Trasfega", route: RouteTransferTank},
	ActionStartFermentationBase: {name: "StartFermentationBase", label: "Iniciar pé de Cuba", route: RouteStartPeDeCuba},
}

// Actions returns the menu actions in display order.
func Actions() []Action {
	return []Action{ActionAddBaseWine, ActionTransferTank, ActionStartFermentationBase}
}

// ParseAction maps an action name, case-insensitively, to its Action.
func ParseAction(name string) (Action, error) {
	for a, info := range actionCatalog {
		if strings.EqualFold(info.name, strings.TrimSpace(name)) {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

func (a Action) String() string {
	if info, ok := actionCatalog[a]; ok {
		return info.name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Label is the text shown on the action card.
func (a Action) Label() string {
	return actionCatalog[a].label
}

// RouteTemplate is the route the action navigates to.
func (a Action) RouteTemplate() string {
	return actionCatalog[a].route
}

// MarshalText encodes the action by name.
func (a Action) MarshalText() ([]byte, error) {
	info, ok := actionCatalog[a]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAction, int(a))
	}
	return []byte(info.name), nil
}

// Intent is what the user asked for: open a tank or run a menu action.
type Intent struct {
	run    bool
	action Action
}

// OpenTank is the intent of tapping a tank card.
func OpenTank() Intent {
	return Intent{}
}

// RunAction is the intent of tapping an action on the empty tank menu.
func RunAction(a Action) Intent {
	return Intent{run: true, action: a}
}

// Route computes the navigation target for an intent on a tank.
//
// Running an action is only meaningful from the empty tank menu, so Route
// panics when given an unknown action or an in-use tank: both are caller bugs.
func Route(v View, in Intent) Target {
	if !in.run {
		if v.State == StateInUse {
			var name string
			var id int64
			if v.Content != nil {
				name, id = v.Content.Name, v.Content.ID
			}
			return Target{
				Route: RouteTankDetail,
				Params: map[string]any{
					paramTank:      v.Title,
					paramDepositID: v.DepositID,
					paramContent:   name,
					paramContentID: id,
				},
			}
		}
		return Target{Route: RouteEmptyTank, Params: tankParams(v)}
	}

	info, ok := actionCatalog[in.action]
	if !ok {
		panic(fmt.Sprintf("tank: route for unknown action %d", int(in.action)))
	}
	if v.State == StateInUse {
		panic(fmt.Sprintf("tank: action %s requested for in-use tank %d", info.name, v.DepositID))
	}
	return Target{Route: info.route, Params: tankParams(v)}
}

func tankParams(v View) map[string]any {
	return map[string]any{
		paramTank:      v.Title,
		paramDepositID: v.DepositID,
	}
}
