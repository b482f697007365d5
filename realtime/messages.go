package realtime

// Message is one JSON frame on a player socket.
type Message map[string]any

// Client frame types the socket handlers react to.
const (
	ClientPing            = "ping"
	ClientReadyForMatch   = "ready_for_match"
	ClientJoinTournament  = "join_tournament"
	ClientLeaveTournament = "leave_tournament"
)

func TournamentStarted(state any) Message {
	return Message{"type": "tournament_started", "data": state}
}

func RoundStarted(roundNumber int, matches any) Message {
	return Message{"type": "round_started", "round_number": roundNumber, "matches": matches}
}

// Opponent is the preview a player gets right before a match starts.
type Opponent struct {
	HeroID   string `json:"hero_id"`
	HeroName string `json:"hero_name"`
}

func MatchStarting(matchID string, opponent Opponent) Message {
	return Message{"type": "match_starting", "match_id": matchID, "opponent": opponent}
}

func MatchCompleted(matchID, result string, finalHealth int) Message {
	return Message{
		"type":         "match_completed",
		"match_id":     matchID,
		"result":       result,
		"final_health": finalHealth,
	}
}

func MatchResult(matchID, winnerID string, roundNumber int) Message {
	return Message{
		"type":         "match_result",
		"match_id":     matchID,
		"winner_id":    winnerID,
		"round_number": roundNumber,
	}
}

func MatchUpdate(matchID string, data any) Message {
	return Message{"type": "match_update", "match_id": matchID, "data": data}
}

func RoundCompleted(roundNumber, remainingPlayers int) Message {
	return Message{
		"type":              "round_completed",
		"round_number":      roundNumber,
		"remaining_players": remainingPlayers,
	}
}

// TournamentWinner identifies the champion in the final broadcast. Pointers
// stay nil when a tournament ends with nobody standing.
type TournamentWinner struct {
	PlayerID *string `json:"player_id"`
	HeroID   *string `json:"hero_id"`
}

func TournamentCompleted(winner TournamentWinner) Message {
	return Message{"type": "tournament_completed", "winner": winner}
}

func ByeRound() Message {
	return Message{
		"type":    "bye_round",
		"message": "You received a bye this round and advance automatically",
	}
}

func Pong() Message {
	return Message{"type": "pong"}
}

func ErrorMessage(text string) Message {
	return Message{"type": "error", "message": text}
}
