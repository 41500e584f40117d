package common

type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Ask {
		return "ASK"
	}
	return "BID"
}

type TimeInForce int

const (
	// GTD orders rest in the book until their expiration timestamp, at
	// which point the engine's sweep removes them.
	GTD TimeInForce = iota
	// Day orders are valid for the current trading session only and are
	// never touched by the expiry sweep.
	Day
)

func (t TimeInForce) String() string {
	if t == GTD {
		return "GTD"
	}
	return "DAY"
}

type LimitType int

const (
	Limit LimitType = iota
	NoLimit
)

func (l LimitType) String() string {
	if l == NoLimit {
		return "NONE"
	}
	return "LIMIT"
}

type InstrumentState int

const (
	Active InstrumentState = iota
	Inactive
	Suspended
	Delisted
)

var stateName = map[InstrumentState]string{
	Active:    "ACTIVE",
	Inactive:  "INACTIVE",
	Suspended: "SUSPENDED",
	Delisted:  "DELISTED",
}

func (s InstrumentState) String() string {
	return stateName[s]
}
