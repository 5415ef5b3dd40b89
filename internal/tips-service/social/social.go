package social

import (
	"github.com/radieske/sports-tips-platform/internal/tips-service/model"
)

// Counts são os sinais sociais de um tip, com as flags do usuário que está vendo
type Counts struct {
	Likes int  `json:"likes"`
	Fires int  `json:"fires"`
	Liked bool `json:"liked"`
	Fired bool `json:"fired"`
}

// Has indica se o viewer já reagiu com kind
func (c Counts) Has(kind model.ReactionKind) bool {
	switch kind {
	case model.ReactionLike:
		return c.Liked
	case model.ReactionFire:
		return c.Fired
	}
	return false
}

// Toggle inverte a reação do viewer e ajusta a contagem
func (c Counts) Toggle(kind model.ReactionKind) Counts {
	switch kind {
	case model.ReactionLike:
		if c.Liked {
			c.Likes--
		} else {
			c.Likes++
		}
		c.Liked = !c.Liked
	case model.ReactionFire:
		if c.Fired {
			c.Fires--
		} else {
			c.Fires++
		}
		c.Fired = !c.Fired
	}
	return c
}

// Tally conta reações por tip; viewerID vazio significa visitante anônimo
func Tally(reactions []model.Reaction, viewerID string) map[string]Counts {
	out := make(map[string]Counts)
	for _, r := range reactions {
		c := out[r.TipID]
		mine := viewerID != "" && r.UserID == viewerID
		switch r.Kind {
		case model.ReactionLike:
			c.Likes++
			c.Liked = c.Liked || mine
		case model.ReactionFire:
			c.Fires++
			c.Fired = c.Fired || mine
		}
		out[r.TipID] = c
	}
	return out
}

// Toggle remove a reação (user, tip, kind) se existir, senão adiciona.
// Nunca cria duplicata.
func Toggle(reactions []model.Reaction, userID, tipID string, kind model.ReactionKind) []model.Reaction {
	out := make([]model.Reaction, 0, len(reactions)+1)
	removed := false
	for _, r := range reactions {
		if r.UserID == userID && r.TipID == tipID && r.Kind == kind {
			removed = true
			continue
		}
		out = append(out, r)
	}
	if !removed {
		out = append(out, model.Reaction{UserID: userID, TipID: tipID, Kind: kind})
	}
	return out
}

// CountComments conta comentários por tip
func CountComments(comments []model.Comment) map[string]int {
	out := make(map[string]int)
	for _, c := range comments {
		out[c.TipID]++
	}
	return out
}
