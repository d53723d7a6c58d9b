package protocol

// Error codes returned to the offending sender; failures never reach
// the rest of the room.
const (
	CodeMatchExists     = "MATCH_EXISTS"
	CodeMatchNotFound   = "MATCH_NOT_FOUND"
	CodeNotAParticipant = "NOT_A_PARTICIPANT"
	CodeGameNotActive   = "GAME_NOT_ACTIVE"
	CodeOutOfTurn       = "OUT_OF_TURN"
	CodeIllegalMove     = "ILLEGAL_MOVE"
	CodeBadRequest      = "BAD_REQUEST"
)

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	MatchID string `json:"matchId,omitempty"`
}

func (e ErrorPayload) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "arena protocol error"
}
