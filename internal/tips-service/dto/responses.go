package dto

import (
	"github.com/radieske/sports-tips-platform/internal/tips-service/accounting"
	"github.com/radieske/sports-tips-platform/internal/tips-service/model"
	"github.com/radieske/sports-tips-platform/internal/tips-service/social"
)

// TipView é o tip com sinais sociais e contagem de comentários para o viewer
type TipView struct {
	model.Tip
	Reactions    social.Counts `json:"reactions"`
	CommentCount int           `json:"comment_count"`
	Tracked      bool          `json:"tracked"`
}

// TrackedTip é um stake do usuário junto do tip e do lucro realizado
type TrackedTip struct {
	Stake  model.Stake `json:"stake"`
	Tip    model.Tip   `json:"tip"`
	Profit string      `json:"profit"`
}

type TrackingResponse struct {
	Items   []TrackedTip       `json:"items"`
	Summary accounting.Summary `json:"summary"`
}

type ReactionResponse struct {
	TipID  string             `json:"tip_id"`
	Kind   model.ReactionKind `json:"kind"`
	Active bool               `json:"active"`
	Counts social.Counts      `json:"counts"`
}

type MeResponse struct {
	UserID      string     `json:"user_id"`
	Name        string     `json:"name,omitempty"`
	Role        model.Role `json:"role"`
	IsModerator bool       `json:"is_moderator"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Code    int               `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}
