package model

// StateResponse is the response for GET /api/v1/state.
type StateResponse struct {
	FileName       string   `json:"fileName,omitempty"`
	Dimensionality int      `json:"dimensionality"`
	Loading        bool     `json:"loading"`
	ButtonLabel    string   `json:"buttonLabel"`
	Players        []Player `json:"players,omitempty"`
}

type Player struct {
	Heading string `json:"heading"`
	Source  string `json:"source"`
}
