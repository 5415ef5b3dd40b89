package leaderboard

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/sports-tips-platform/internal/tips-service/accounting"
	"github.com/radieske/sports-tips-platform/internal/tips-service/model"
)

const DefaultLimit = 10

// Row é um stake já juntado com o tip referenciado
type Row struct {
	Stake model.Stake
	Tip   model.Tip
}

type Options struct {
	Limit int
	// Since/Until recortam stakes por created_at em [Since, Until); nil = sem limite
	Since *time.Time
	Until *time.Time
}

type Entry struct {
	Rank        int             `json:"rank"`
	UserID      string          `json:"user_id"`
	DisplayName string          `json:"display_name"`
	TotalStaked decimal.Decimal `json:"total_staked"`
	TotalProfit decimal.Decimal `json:"total_profit"`
	Wins        int             `json:"wins"`
	TotalBets   int             `json:"total_bets"`
	ROI         decimal.Decimal `json:"roi"`
}

// Aggregate agrupa stakes liquidados (won/lost) por usuário, ordena por lucro
// decrescente (desempate por user id) e corta no limite.
func Aggregate(rows []Row, opts Options) []Entry {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	groups := make(map[string]*Entry)
	for _, r := range rows {
		if !r.Tip.Status.Settled() {
			continue
		}
		if opts.Since != nil && r.Stake.CreatedAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && !r.Stake.CreatedAt.Before(*opts.Until) {
			continue
		}
		e, ok := groups[r.Stake.UserID]
		if !ok {
			e = &Entry{
				UserID:      r.Stake.UserID,
				TotalStaked: decimal.Zero,
				TotalProfit: decimal.Zero,
			}
			groups[r.Stake.UserID] = e
		}
		if e.DisplayName == "" {
			e.DisplayName = r.Stake.DisplayName
		}
		e.TotalStaked = e.TotalStaked.Add(r.Stake.Amount)
		e.TotalProfit = e.TotalProfit.Add(accounting.StakeProfit(r.Stake.Amount, r.Tip))
		e.TotalBets++
		if r.Tip.Status == model.StatusWon {
			e.Wins++
		}
	}

	out := make([]Entry, 0, len(groups))
	for _, e := range groups {
		e.ROI = accounting.ROI(e.TotalProfit, e.TotalStaked)
		out = append(out, *e)
	}

	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalProfit.Cmp(out[j].TotalProfit); c != 0 {
			return c > 0
		}
		return out[i].UserID < out[j].UserID
	})

	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// MonthStart devolve o primeiro instante do mês de t, no fuso de t
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
