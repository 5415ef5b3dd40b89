package accounting

import (
	"github.com/shopspring/decimal"

	"github.com/radieske/sports-tips-platform/internal/tips-service/model"
)

var hundred = decimal.NewFromInt(100)

// Summary agrega lucro, volume e desempenho de um conjunto de stakes.
// Nunca é persistido: recalculado a cada leitura a partir das linhas brutas.
type Summary struct {
	TotalStaked decimal.Decimal `json:"total_staked"`
	TotalProfit decimal.Decimal `json:"total_profit"`
	Wins        int             `json:"wins"`
	Losses      int             `json:"losses"`
	Pending     int             `json:"pending"`
	Voids       int             `json:"voids"`
	Settled     int             `json:"settled"`
	ROI         decimal.Decimal `json:"roi"`
	WinRate     decimal.Decimal `json:"win_rate"`
}

// StakeProfit calcula o lucro realizado de um stake a partir do status e odd atuais do tip
func StakeProfit(amount decimal.Decimal, tip model.Tip) decimal.Decimal {
	switch tip.Status {
	case model.StatusWon:
		return amount.Mul(tip.Odds.Sub(decimal.NewFromInt(1)))
	case model.StatusLost:
		return amount.Neg()
	default:
		return decimal.Zero
	}
}

// ROI = lucro / apostado × 100, ou 0 quando nada foi apostado
func ROI(profit, staked decimal.Decimal) decimal.Decimal {
	if !staked.IsPositive() {
		return decimal.Zero
	}
	return profit.Div(staked).Mul(hundred).Round(2)
}

// WinRate = vitórias / (vitórias + derrotas) × 100, ou 0 sem stakes liquidados
func WinRate(wins, losses int) decimal.Decimal {
	if wins+losses == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(wins)).
		Div(decimal.NewFromInt(int64(wins + losses))).
		Mul(hundred).
		Round(2)
}

// Summarize resolve cada stake contra seu tip e agrega os números.
// Stakes cujo tip não está no conjunto são ignorados.
func Summarize(tips []model.Tip, stakes []model.Stake) Summary {
	byID := make(map[string]model.Tip, len(tips))
	for _, t := range tips {
		byID[t.ID] = t
	}

	s := Summary{
		TotalStaked: decimal.Zero,
		TotalProfit: decimal.Zero,
	}
	for _, st := range stakes {
		tip, ok := byID[st.TipID]
		if !ok {
			continue
		}
		s.TotalStaked = s.TotalStaked.Add(st.Amount)
		s.TotalProfit = s.TotalProfit.Add(StakeProfit(st.Amount, tip))

		switch tip.Status {
		case model.StatusWon:
			s.Wins++
		case model.StatusLost:
			s.Losses++
		case model.StatusVoid:
			s.Voids++
		default:
			s.Pending++
		}
	}

	s.Settled = s.Wins + s.Losses
	s.ROI = ROI(s.TotalProfit, s.TotalStaked)
	s.WinRate = WinRate(s.Wins, s.Losses)
	return s
}
