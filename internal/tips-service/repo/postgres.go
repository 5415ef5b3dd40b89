package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/radieske/sports-tips-platform/internal/tips-service/model"
	"github.com/radieske/sports-tips-platform/internal/tips-service/policy"
)

// Postgres é a fronteira de armazenamento autoritativa.
// Toda escrita de tip resolve o papel do ator e passa pelo Guard dentro da transação.
type Postgres struct {
	db    *sql.DB
	guard *policy.Guard
}

// NewPostgres retorna uma instância do repositório de tips
func NewPostgres(db *sql.DB, g *policy.Guard) *Postgres {
	if g == nil {
		g = policy.NewGuard()
	}
	return &Postgres{db: db, guard: g}
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const selectTip = `
	SELECT t.id, t.match_name, t.sport, t.bet_type, t.odds, t.status, t.analysis,
	       t.match_start_time, t.created_at, t.updated_at, t.created_by, COALESCE(p.display_name, '')
	FROM tips t
	LEFT JOIN profiles p ON p.id = t.created_by`

type scanner interface {
	Scan(dest ...any) error
}

func scanTip(s scanner) (model.Tip, error) {
	var t model.Tip
	var status string
	err := s.Scan(&t.ID, &t.MatchName, &t.Sport, &t.BetType, &t.Odds, &status, &t.Analysis,
		&t.MatchStartTime, &t.CreatedAt, &t.UpdatedAt, &t.CreatedBy, &t.CreatorName)
	t.Status = model.Status(status)
	return t, err
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// ListTips retorna os tips mais recentes primeiro
func (p *Postgres) ListTips(ctx context.Context, f TipFilter) ([]model.Tip, error) {
	var (
		where []string
		args  []any
	)
	if f.Sport != "" {
		args = append(args, f.Sport)
		where = append(where, fmt.Sprintf("t.sport = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if f.IDs != nil {
		ids := make([]string, 0, len(f.IDs))
		for _, id := range f.IDs {
			if validID(id) {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return nil, nil
		}
		args = append(args, pq.Array(ids))
		where = append(where, fmt.Sprintf("t.id = ANY($%d::uuid[])", len(args)))
	}

	q := selectTip
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY t.created_at DESC"

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Tip
	for rows.Next() {
		t, err := scanTip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *Postgres) GetTip(ctx context.Context, id string) (model.Tip, error) {
	if !validID(id) {
		return model.Tip{}, model.ErrNotFound
	}
	t, err := scanTip(p.db.QueryRowContext(ctx, selectTip+" WHERE t.id = $1", id))
	return t, mapErr(err)
}

// roleOf resolve o papel efetivo dentro da mesma transação da escrita
func roleOf(ctx context.Context, q queryer, userID string) (model.Role, error) {
	rows, err := q.QueryContext(ctx, `SELECT role FROM user_roles WHERE user_id = $1`, userID)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return "", err
		}
		roles = append(roles, model.Role(r))
	}
	return model.EffectiveRole(roles...), rows.Err()
}

func (p *Postgres) Roles(ctx context.Context, userID string) ([]model.Role, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Role
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		out = append(out, model.Role(r))
	}
	return out, rows.Err()
}

// CreateTip insere um tip pendente; exige moderador/admin
func (p *Postgres) CreateTip(ctx context.Context, actorID string, t model.Tip) (model.Tip, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Tip{}, err
	}
	defer tx.Rollback()

	role, err := roleOf(ctx, tx, actorID)
	if err != nil {
		return model.Tip{}, err
	}
	t.Status = model.StatusPending
	if err := p.guard.CheckCreate(role, t); err != nil {
		return model.Tip{}, err
	}

	t.ID = uuid.NewString()
	t.CreatedBy = actorID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO tips (id, match_name, sport, bet_type, odds, status, analysis, match_start_time, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		t.ID, t.MatchName, t.Sport, t.BetType, t.Odds, string(t.Status), t.Analysis, t.MatchStartTime, t.CreatedBy,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.Tip{}, mapErr(err)
	}

	if err := tx.QueryRowContext(ctx, `SELECT display_name FROM profiles WHERE id = $1`, actorID).Scan(&t.CreatorName); err != nil && err != sql.ErrNoRows {
		return model.Tip{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Tip{}, err
	}
	return t, nil
}

// UpdateTip aplica o patch com a linha travada; o trigger repete o anti-cheat no banco
func (p *Postgres) UpdateTip(ctx context.Context, actorID, id string, patch model.TipPatch) (model.Tip, error) {
	if !validID(id) {
		return model.Tip{}, model.ErrNotFound
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Tip{}, err
	}
	defer tx.Rollback()

	cur, err := scanTip(tx.QueryRowContext(ctx, selectTip+" WHERE t.id = $1 FOR UPDATE OF t", id))
	if err != nil {
		return model.Tip{}, mapErr(err)
	}

	role, err := roleOf(ctx, tx, actorID)
	if err != nil {
		return model.Tip{}, err
	}
	if err := p.guard.CheckUpdate(role, cur, patch); err != nil {
		return model.Tip{}, err
	}

	next := patch.Apply(cur)
	err = tx.QueryRowContext(ctx, `
		UPDATE tips
		SET match_name=$1, sport=$2, bet_type=$3, odds=$4, status=$5, analysis=$6, match_start_time=$7
		WHERE id=$8
		RETURNING updated_at`,
		next.MatchName, next.Sport, next.BetType, next.Odds, string(next.Status), next.Analysis, next.MatchStartTime, id,
	).Scan(&next.UpdatedAt)
	if err != nil {
		return model.Tip{}, mapErr(err)
	}

	if err := tx.Commit(); err != nil {
		return model.Tip{}, err
	}
	return next, nil
}

const selectStake = `
	SELECT s.id, s.user_id, s.tip_id, s.stake_amount, s.created_at, COALESCE(p.display_name, '')
	FROM user_tracking s
	LEFT JOIN profiles p ON p.id = s.user_id`

func (p *Postgres) ListStakes(ctx context.Context, f StakeFilter) ([]model.Stake, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("s.user_id = $%d", len(args)))
	}
	if f.TipID != "" {
		if !validID(f.TipID) {
			return nil, nil
		}
		args = append(args, f.TipID)
		where = append(where, fmt.Sprintf("s.tip_id = $%d", len(args)))
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		where = append(where, fmt.Sprintf("s.created_at >= $%d", len(args)))
	}

	q := selectStake
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY s.created_at DESC"

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Stake
	for rows.Next() {
		var s model.Stake
		if err := rows.Scan(&s.ID, &s.UserID, &s.TipID, &s.Amount, &s.CreatedAt, &s.DisplayName); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CreateStake registra o acompanhamento; só tips pendentes, um por (user, tip)
func (p *Postgres) CreateStake(ctx context.Context, s model.Stake) (model.Stake, error) {
	if !validID(s.TipID) {
		return model.Stake{}, model.ErrNotFound
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Stake{}, err
	}
	defer tx.Rollback()

	tip, err := scanTip(tx.QueryRowContext(ctx, selectTip+" WHERE t.id = $1 FOR SHARE OF t", s.TipID))
	if err != nil {
		return model.Stake{}, mapErr(err)
	}
	if err := p.guard.CheckTrack(tip); err != nil {
		return model.Stake{}, err
	}

	s.ID = uuid.NewString()
	err = tx.QueryRowContext(ctx, `
		INSERT INTO user_tracking (id, user_id, tip_id, stake_amount)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at`,
		s.ID, s.UserID, s.TipID, s.Amount,
	).Scan(&s.CreatedAt)
	if err != nil {
		return model.Stake{}, mapErr(err)
	}

	if err := tx.Commit(); err != nil {
		return model.Stake{}, err
	}
	return s, nil
}

// DeleteStake remove apenas o stake do próprio usuário
func (p *Postgres) DeleteStake(ctx context.Context, userID, tipID string) error {
	if !validID(tipID) {
		return model.ErrNotFound
	}
	res, err := p.db.ExecContext(ctx, `DELETE FROM user_tracking WHERE user_id = $1 AND tip_id = $2`, userID, tipID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ListReactions: tipIDs nil = todas
func (p *Postgres) ListReactions(ctx context.Context, tipIDs []string) ([]model.Reaction, error) {
	q := `SELECT id, user_id, tip_id, kind, created_at FROM tip_reactions`
	var args []any
	if tipIDs != nil {
		q += ` WHERE tip_id::text = ANY($1)`
		args = append(args, pq.Array(tipIDs))
	}

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Reaction
	for rows.Next() {
		var r model.Reaction
		var kind string
		if err := rows.Scan(&r.ID, &r.UserID, &r.TipID, &kind, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Kind = model.ReactionKind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) AddReaction(ctx context.Context, r model.Reaction) (model.Reaction, error) {
	if !validID(r.TipID) {
		return model.Reaction{}, model.ErrNotFound
	}
	r.ID = uuid.NewString()
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO tip_reactions (id, user_id, tip_id, kind)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at`,
		r.ID, r.UserID, r.TipID, string(r.Kind),
	).Scan(&r.CreatedAt)
	if err != nil {
		return model.Reaction{}, mapErr(err)
	}
	return r, nil
}

// RemoveReaction devolve false se não havia reação
func (p *Postgres) RemoveReaction(ctx context.Context, userID, tipID string, kind model.ReactionKind) (bool, error) {
	if !validID(tipID) {
		return false, nil
	}
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM tip_reactions WHERE user_id = $1 AND tip_id = $2 AND kind = $3`,
		userID, tipID, string(kind))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListComments em ordem cronológica crescente
func (p *Postgres) ListComments(ctx context.Context, tipID string) ([]model.Comment, error) {
	if !validID(tipID) {
		return nil, nil
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT c.id, c.user_id, c.tip_id, c.content, c.created_at, COALESCE(p.display_name, '')
		FROM tip_comments c
		LEFT JOIN profiles p ON p.id = c.user_id
		WHERE c.tip_id = $1
		ORDER BY c.created_at ASC, c.id ASC`, tipID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.UserID, &c.TipID, &c.Content, &c.CreatedAt, &c.DisplayName); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) CountComments(ctx context.Context, tipIDs []string) (map[string]int, error) {
	q := `SELECT tip_id, COUNT(*) FROM tip_comments`
	var args []any
	if tipIDs != nil {
		q += ` WHERE tip_id::text = ANY($1)`
		args = append(args, pq.Array(tipIDs))
	}
	q += ` GROUP BY tip_id`

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

func (p *Postgres) AddComment(ctx context.Context, c model.Comment) (model.Comment, error) {
	if !validID(c.TipID) {
		return model.Comment{}, model.ErrNotFound
	}
	c.ID = uuid.NewString()
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO tip_comments (id, user_id, tip_id, content)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at`,
		c.ID, c.UserID, c.TipID, c.Content,
	).Scan(&c.CreatedAt)
	if err != nil {
		return model.Comment{}, mapErr(err)
	}
	return c, nil
}

// UpsertProfile garante o perfil (e o papel base user) do usuário autenticado
func (p *Postgres) UpsertProfile(ctx context.Context, pr model.Profile) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO profiles (id, display_name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name
		WHERE EXCLUDED.display_name <> ''`, pr.UserID, pr.DisplayName); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role) VALUES ($1, 'user')
		ON CONFLICT DO NOTHING`, pr.UserID); err != nil {
		return err
	}
	return tx.Commit()
}

// GrantRole é operação administrativa (seed/CLI), fora da API pública
func (p *Postgres) GrantRole(ctx context.Context, userID string, role model.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", model.ErrValidation, role)
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// o seed roda antes do primeiro login: o perfil pode ainda não existir
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO profiles (id) VALUES ($1)
		ON CONFLICT DO NOTHING`, userID); err != nil {
		return mapErr(err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, string(role)); err != nil {
		return mapErr(err)
	}
	return tx.Commit()
}
