package tank

// Transition is a tank whose state differs between two consecutive resolutions.
type Transition struct {
	DepositID int64  `json:"depositId"`
	Title     string `json:"title"`
	From      State  `json:"from"`
	To        State  `json:"to"`
}

// Diff compares two resolved lists by deposit id. Tanks that appear or
// disappear between the lists produce no transition.
func Diff(prev, next []View) []Transition {
	before := make(map[int64]State, len(prev))
	for _, v := range prev {
		before[v.DepositID] = v.State
	}

	var transitions []Transition
	for _, v := range next {
		old, ok := before[v.DepositID]
		if !ok || old == v.State {
			continue
		}
		transitions = append(transitions, Transition{
			DepositID: v.DepositID,
			Title:     v.Title,
			From:      old,
			To:        v.State,
		})
	}
	return transitions
}
