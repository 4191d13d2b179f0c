package lichess

import "encoding/json"

type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Title    string `json:"title,omitempty"`
}

// IsBot reports whether the account is a bot account.
func (p *Profile) IsBot() bool { return p.Title == "BOT" }

// Event is one entry of the account event stream.
type Event struct {
	Type string     `json:"type"` // gameStart, gameFinish, challenge, ...
	Game *EventGame `json:"game,omitempty"`
}

type EventGame struct {
	ID     string `json:"id"`
	GameID string `json:"gameId"`
}

// GameEvent is one entry of a game stream. Exactly one of Full, State and
// Chat is set for the matching Type; a keep-alive has Type "ping".
type GameEvent struct {
	Type  string
	Full  *GameFull
	State *GameState
	Chat  *ChatLine
}

type GameFull struct {
	ID         string      `json:"id"`
	Variant    Variant     `json:"variant"`
	Clock      *ClockSetup `json:"clock"`
	Speed      string      `json:"speed"`
	Rated      bool        `json:"rated"`
	White      Player      `json:"white"`
	Black      Player      `json:"black"`
	InitialFen string      `json:"initialFen"`
	State      GameState   `json:"state"`
}

type Variant struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// ClockSetup is the time control, both values in milliseconds.
type ClockSetup struct {
	Initial   int64 `json:"initial"`
	Increment int64 `json:"increment"`
}

type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Title  string `json:"title,omitempty"`
	Rating int    `json:"rating,omitempty"`
}

// GameState carries the moves so far in UCI notation and the clocks in milliseconds.
type GameState struct {
	Moves  string `json:"moves"`
	WTime  int64  `json:"wtime"`
	BTime  int64  `json:"btime"`
	WInc   int64  `json:"winc"`
	BInc   int64  `json:"binc"`
	Status string `json:"status"`
	Winner string `json:"winner,omitempty"`
}

type ChatLine struct {
	Username string `json:"username"`
	Text     string `json:"text"`
	Room     string `json:"room"`
}

func decodeGameEvent(data []byte) (GameEvent, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return GameEvent{}, err
	}
	ev := GameEvent{Type: head.Type}
	var err error
	switch head.Type {
	case "gameFull":
		ev.Full = new(GameFull)
		err = json.Unmarshal(data, ev.Full)
	case "gameState":
		ev.State = new(GameState)
		err = json.Unmarshal(data, ev.State)
	case "chatLine":
		ev.Chat = new(ChatLine)
		err = json.Unmarshal(data, ev.Chat)
	}
	return ev, err
}
