package repo

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/radieske/sports-tips-platform/internal/tips-service/model"
)

//go:embed schema.sql
var schema string

// Migrate aplica o schema (idempotente) incluindo o trigger anti-cheat
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// TipFilter: campos vazios não filtram
type TipFilter struct {
	Sport  string
	Status model.Status
	IDs    []string
}

type StakeFilter struct {
	UserID string
	TipID  string
	Since  *time.Time
}

const (
	codeTipLocked         = "TP001"
	codeInvalidTransition = "TP002"
	codeUniqueViolation   = "23505"
	codeForeignKey        = "23503"
	codeCheckViolation    = "23514"
	codeInvalidText       = "22P02"

	constraintTracking  = "user_tracking_user_tip_key"
	constraintReactions = "tip_reactions_user_tip_kind_key"
)

// mapErr traduz erros do Postgres para a taxonomia do domínio
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case codeTipLocked:
		return model.ErrTipLocked
	case codeInvalidTransition:
		return fmt.Errorf("%w: %s", model.ErrInvalidTransition, pqErr.Message)
	case codeUniqueViolation:
		switch pqErr.Constraint {
		case constraintTracking:
			return model.ErrAlreadyTracked
		case constraintReactions:
			return model.ErrReactionExists
		}
	case codeForeignKey, codeInvalidText:
		return model.ErrNotFound
	case codeCheckViolation:
		return &model.ValidationError{Fields: map[string]string{pqErr.Constraint: pqErr.Message}}
	}
	return err
}
