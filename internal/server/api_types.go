package server

// ============================================================================
// ERROR RESPONSES
// ============================================================================

type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ============================================================================
// CREATE MATCH (create_match)
// ============================================================================

type CreateMatchRequest struct {
	PlayerName string `json:"playerName"`
}

type MatchCreatedResponse struct {
	RoomID string `json:"roomId"`
	Side   string `json:"side"`
}

// ============================================================================
// JOIN MATCH (join_match)
// ============================================================================

type JoinMatchRequest struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

type MatchJoinedResponse struct {
	RoomID string `json:"roomId"`
	Side   string `json:"side"`
}

// Sent to both players once the second seat fills.
type MatchStartNotification struct {
	White     string `json:"white"`
	Black     string `json:"black"`
	Board     string `json:"board"`
	WhiteTime int    `json:"whiteTime"`
	BlackTime int    `json:"blackTime"`
}

// ============================================================================
// SUBMIT MOVE (submit_move)
// ============================================================================

type SubmitMoveRequest struct {
	RoomID string `json:"roomId"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// Broadcast to both players after a committed move.
type MoveAppliedNotification struct {
	From        string   `json:"from"`
	To          string   `json:"to"`
	San         string   `json:"san"`
	Capture     bool     `json:"capture"`
	Board       string   `json:"board"`
	SideToMove  string   `json:"sideToMove"`
	IsCheck     bool     `json:"isCheck"`
	IsCheckmate bool     `json:"isCheckmate"`
	IsDraw      bool     `json:"isDraw"`
	Moves       []string `json:"moves"`
	WhiteTime   int      `json:"whiteTime"`
	BlackTime   int      `json:"blackTime"`
}

// ============================================================================
// CLOCK AND TERMINATION
// ============================================================================

type TimeUpdateNotification struct {
	WhiteTime int `json:"whiteTime"`
	BlackTime int `json:"blackTime"`
}

type MatchOverNotification struct {
	Status     string `json:"status"`
	Winner     string `json:"winner,omitempty"`
	WinnerName string `json:"winnerName,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type PlayerLeftNotification struct {
	Name string `json:"name"`
}
