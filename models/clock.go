package models

// Clock is the clock state sent with every search, in milliseconds.
type Clock struct {
	WhiteTimeMs int64 `json:"wtime"`
	BlackTimeMs int64 `json:"btime"`
	WhiteIncMs  int64 `json:"winc"`
	BlackIncMs  int64 `json:"binc"`
}

// TimeControl is the game's initial time and increment, in milliseconds.
type TimeControl struct {
	InitialMs   int64 `json:"initial"`
	IncrementMs int64 `json:"increment"`
}
