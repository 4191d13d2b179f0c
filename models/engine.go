package models

import "strings"

// Protocol selects the text protocol spoken by the engine subprocess.
type Protocol string

const (
	UCI    Protocol = "uci"
	XBoard Protocol = "xboard"
)

// ParseProtocol maps a config value onto a Protocol. An empty value means UCI.
func ParseProtocol(s string) (Protocol, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "uci":
		return UCI, true
	case "xboard", "cecp", "winboard":
		return XBoard, true
	}
	return "", false
}

// EngineConfig describes how to launch and configure one engine.
type EngineConfig struct {
	Path     string            `json:"path"`
	Weights  string            `json:"weights,omitempty"`
	Threads  int               `json:"threads,omitempty"`
	Protocol Protocol          `json:"protocol"`
	Options  map[string]string `json:"options,omitempty"` // UCI setoption name -> value
}
