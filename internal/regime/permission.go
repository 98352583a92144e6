package regime

// Side is the option side a permission verdict allows.
type Side string

const (
	SideNone  Side = "NONE"
	SideCalls Side = "CALLS"
	SidePuts  Side = "PUTS"
)

// Permission is the trade-permission verdict derived from the two
// classifiers.
type Permission struct {
	Allowed bool   `json:"allowed"`
	Side    Side   `json:"side"`
	Reason  string `json:"reason"`
}

// Permit combines the volatility and directional states. Entry is
// allowed only in a directional TRANSITION regime; the allowed side
// mirrors the directional bias.
func Permit(vol VolState, dir DirState) Permission {
	if vol != VolTransition {
		return Permission{Side: SideNone, Reason: "volatility regime is " + string(vol) + ", entries need TRANSITION"}
	}
	switch dir {
	case DirBull:
		return Permission{Allowed: true, Side: SideCalls, Reason: "bullish direction inside TRANSITION"}
	case DirBear:
		return Permission{Allowed: true, Side: SidePuts, Reason: "bearish direction inside TRANSITION"}
	default:
		return Permission{Side: SideNone, Reason: "no directional edge"}
	}
}
