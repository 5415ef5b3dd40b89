package dto

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CreateTipRequest struct {
	MatchName      string          `json:"match_name" validate:"required,max=200"`
	Sport          string          `json:"sport" validate:"required,max=50"`
	BetType        string          `json:"bet_type" validate:"required,max=200"`
	Odds           decimal.Decimal `json:"odds" validate:"-"`
	Analysis       string          `json:"analysis" validate:"max=2000"`
	MatchStartTime time.Time       `json:"match_start_time" validate:"-"`
}

func (r *CreateTipRequest) Normalize() {
	r.MatchName = strings.TrimSpace(r.MatchName)
	r.Sport = strings.TrimSpace(r.Sport)
	r.BetType = strings.TrimSpace(r.BetType)
	r.Analysis = strings.TrimSpace(r.Analysis)
}

// UpdateTipRequest: campos ausentes (nil) não mudam
type UpdateTipRequest struct {
	MatchName      *string          `json:"match_name,omitempty" validate:"omitempty,min=1,max=200"`
	Sport          *string          `json:"sport,omitempty" validate:"omitempty,min=1,max=50"`
	BetType        *string          `json:"bet_type,omitempty" validate:"omitempty,min=1,max=200"`
	Odds           *decimal.Decimal `json:"odds,omitempty" validate:"-"`
	Status         *string          `json:"status,omitempty" validate:"omitempty,oneof=pending won lost void"`
	Analysis       *string          `json:"analysis,omitempty" validate:"omitempty,max=2000"`
	MatchStartTime *time.Time       `json:"match_start_time,omitempty" validate:"-"`
}

func (r *UpdateTipRequest) Normalize() {
	for _, p := range []*string{r.MatchName, r.Sport, r.BetType, r.Analysis, r.Status} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
}

// SettleTipRequest: só won/lost/void são liquidações
type SettleTipRequest struct {
	Status string `json:"status" validate:"required,oneof=won lost void"`
}

type TrackTipRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"-"`
}

type CommentRequest struct {
	Content string `json:"content" validate:"required,max=500"`
}

func (r *CommentRequest) Normalize() {
	r.Content = strings.TrimSpace(r.Content)
}
