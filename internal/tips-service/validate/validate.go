package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/radieske/sports-tips-platform/internal/tips-service/dto"
	"github.com/radieske/sports-tips-platform/internal/tips-service/model"
)

var (
	MinOdds = decimal.RequireFromString("1.01")

	v = newValidator()
)

func newValidator() *validator.Validate {
	vv := validator.New()
	// erros usam o nome json do campo
	vv.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return vv
}

// Fields acumula mensagens por campo
type Fields map[string]string

func (f Fields) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &model.ValidationError{Fields: f}
}

// Struct roda as tags validate e devolve as mensagens por campo
func Struct(s any) Fields {
	out := Fields{}
	err := v.Struct(s)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["_"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return "is invalid"
	}
}

// Odds: >= 1.01 e no máximo 2 casas decimais
func Odds(d decimal.Decimal) string {
	if d.LessThan(MinOdds) {
		return "must be at least 1.01"
	}
	if !d.Equal(d.Round(2)) {
		return "must have at most 2 decimal places"
	}
	return ""
}

// Amount: > 0 e no máximo 2 casas decimais
func Amount(d decimal.Decimal) string {
	if !d.IsPositive() {
		return "must be greater than 0"
	}
	if !d.Equal(d.Round(2)) {
		return "must have at most 2 decimal places"
	}
	return ""
}

func CreateTip(r *dto.CreateTipRequest) error {
	r.Normalize()
	f := Struct(r)
	if msg := Odds(r.Odds); msg != "" {
		f["odds"] = msg
	}
	if r.MatchStartTime.IsZero() {
		f["match_start_time"] = "is required"
	}
	return f.Err()
}

func UpdateTip(r *dto.UpdateTipRequest) error {
	r.Normalize()
	f := Struct(r)
	if r.Odds != nil {
		if msg := Odds(*r.Odds); msg != "" {
			f["odds"] = msg
		}
	}
	if r.MatchStartTime != nil && r.MatchStartTime.IsZero() {
		f["match_start_time"] = "is invalid"
	}
	return f.Err()
}

func SettleTip(r *dto.SettleTipRequest) error {
	r.Status = strings.TrimSpace(r.Status)
	return Struct(r).Err()
}

func TrackTip(r *dto.TrackTipRequest) error {
	f := Fields{}
	if msg := Amount(r.Amount); msg != "" {
		f["amount"] = msg
	}
	return f.Err()
}

func Comment(r *dto.CommentRequest) error {
	r.Normalize()
	return Struct(r).Err()
}

func ReactionKind(kind string) error {
	if !model.ReactionKind(kind).Valid() {
		return Fields{"kind": "must be one of: like fire"}.Err()
	}
	return nil
}

// Month interpreta YYYY-MM como o primeiro instante do mês em UTC
func Month(s string) (time.Time, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, Fields{"month": "must be formatted as YYYY-MM"}.Err()
	}
	return t.UTC(), nil
}
