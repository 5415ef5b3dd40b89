package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status é o estado de liquidação de um tip
type Status string

const (
	StatusPending Status = "pending"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
	StatusVoid    Status = "void"
)

// Valid indica se o status pertence ao conjunto conhecido
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusWon, StatusLost, StatusVoid:
		return true
	}
	return false
}

// Terminal indica que nenhuma transição sai deste status
func (s Status) Terminal() bool {
	return s == StatusWon || s == StatusLost || s == StatusVoid
}

// Settled indica won/lost (void não conta como liquidado para ranking)
func (s Status) Settled() bool {
	return s == StatusWon || s == StatusLost
}

// ReactionKind é o tipo de reação social
type ReactionKind string

const (
	ReactionLike ReactionKind = "like"
	ReactionFire ReactionKind = "fire"
)

func (k ReactionKind) Valid() bool {
	return k == ReactionLike || k == ReactionFire
}

// Tip é uma recomendação de aposta publicada por um moderador
type Tip struct {
	ID             string          `json:"id"`
	MatchName      string          `json:"match_name"`
	Sport          string          `json:"sport"`
	BetType        string          `json:"bet_type"`
	Odds           decimal.Decimal `json:"odds"`
	Status         Status          `json:"status"`
	Analysis       string          `json:"analysis,omitempty"`
	MatchStartTime time.Time       `json:"match_start_time"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	CreatedBy      string          `json:"created_by"`
	CreatorName    string          `json:"creator_name,omitempty"`
}

// Started indica se a partida já começou no instante now
func (t Tip) Started(now time.Time) bool {
	return !t.MatchStartTime.After(now)
}

// TipPatch carrega apenas os campos a alterar (nil = manter)
type TipPatch struct {
	MatchName      *string
	Sport          *string
	BetType        *string
	Odds           *decimal.Decimal
	Status         *Status
	Analysis       *string
	MatchStartTime *time.Time
}

// ChangesTerms indica se o patch altera algum campo além do status
func (p TipPatch) ChangesTerms(cur Tip) bool {
	if p.MatchName != nil && *p.MatchName != cur.MatchName {
		return true
	}
	if p.Sport != nil && *p.Sport != cur.Sport {
		return true
	}
	if p.BetType != nil && *p.BetType != cur.BetType {
		return true
	}
	if p.Odds != nil && !p.Odds.Equal(cur.Odds) {
		return true
	}
	if p.Analysis != nil && *p.Analysis != cur.Analysis {
		return true
	}
	if p.MatchStartTime != nil && !p.MatchStartTime.Equal(cur.MatchStartTime) {
		return true
	}
	return false
}

// Apply devolve uma cópia do tip com o patch aplicado
func (p TipPatch) Apply(cur Tip) Tip {
	out := cur
	if p.MatchName != nil {
		out.MatchName = *p.MatchName
	}
	if p.Sport != nil {
		out.Sport = *p.Sport
	}
	if p.BetType != nil {
		out.BetType = *p.BetType
	}
	if p.Odds != nil {
		out.Odds = *p.Odds
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.Analysis != nil {
		out.Analysis = *p.Analysis
	}
	if p.MatchStartTime != nil {
		out.MatchStartTime = *p.MatchStartTime
	}
	return out
}

// Stake é a entrada de acompanhamento ("joguei este tip") de um usuário
type Stake struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	TipID       string          `json:"tip_id"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"created_at"`
	DisplayName string          `json:"display_name,omitempty"`
}

type Reaction struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	TipID     string       `json:"tip_id"`
	Kind      ReactionKind `json:"kind"`
	CreatedAt time.Time    `json:"created_at"`
}

type Comment struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	TipID       string    `json:"tip_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	DisplayName string    `json:"display_name,omitempty"`
}

// Profile é o nome de exibição de um usuário
type Profile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}
