package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/sports-tips-platform/internal/shared/auth"
	"github.com/radieske/sports-tips-platform/internal/tips-service/accounting"
	"github.com/radieske/sports-tips-platform/internal/tips-service/dto"
	"github.com/radieske/sports-tips-platform/internal/tips-service/leaderboard"
	"github.com/radieske/sports-tips-platform/internal/tips-service/model"
	"github.com/radieske/sports-tips-platform/internal/tips-service/repo"
	"github.com/radieske/sports-tips-platform/internal/tips-service/social"
	"github.com/radieske/sports-tips-platform/internal/tips-service/validate"
	"github.com/radieske/sports-tips-platform/pkg/contracts/events"
)

// Store é a fronteira de armazenamento (Postgres ou memória)
type Store interface {
	ListTips(ctx context.Context, f repo.TipFilter) ([]model.Tip, error)
	GetTip(ctx context.Context, id string) (model.Tip, error)
	CreateTip(ctx context.Context, actorID string, t model.Tip) (model.Tip, error)
	UpdateTip(ctx context.Context, actorID, id string, p model.TipPatch) (model.Tip, error)

	ListStakes(ctx context.Context, f repo.StakeFilter) ([]model.Stake, error)
	CreateStake(ctx context.Context, s model.Stake) (model.Stake, error)
	DeleteStake(ctx context.Context, userID, tipID string) error

	ListReactions(ctx context.Context, tipIDs []string) ([]model.Reaction, error)
	AddReaction(ctx context.Context, r model.Reaction) (model.Reaction, error)
	RemoveReaction(ctx context.Context, userID, tipID string, kind model.ReactionKind) (bool, error)

	ListComments(ctx context.Context, tipID string) ([]model.Comment, error)
	CountComments(ctx context.Context, tipIDs []string) (map[string]int, error)
	AddComment(ctx context.Context, c model.Comment) (model.Comment, error)

	Roles(ctx context.Context, userID string) ([]model.Role, error)
	UpsertProfile(ctx context.Context, p model.Profile) error
	GrantRole(ctx context.Context, userID string, role model.Role) error
	Ping(ctx context.Context) error
}

var (
	_ Store = (*repo.Postgres)(nil)
	_ Store = (*repo.Memory)(nil)
)

// Cache guarda números derivados; Invalidate descarta tudo de uma vez
type Cache interface {
	// Get devolve a chave da geração consultada; Set grava nela
	Get(ctx context.Context, name string, dst any) (key string, hit bool, err error)
	Set(ctx context.Context, key string, v any) error
	Invalidate(ctx context.Context) error
}

type Publisher interface {
	PublishTipChanged(ctx context.Context, e events.TipChanged) error
}

type Service struct {
	store  Store
	cache  Cache
	events Publisher
	log    *zap.Logger

	LeaderboardSize int
	Now             func() time.Time

	OnWrite  func(kind string)   // métricas
	OnReject func(reason string) // métricas
}

func New(log *zap.Logger, store Store, cache Cache, pub Publisher) *Service {
	return &Service{
		store:           store,
		cache:           cache,
		events:          pub,
		log:             log,
		LeaderboardSize: leaderboard.DefaultLimit,
		Now:             time.Now,
	}
}

func (s *Service) Ping(ctx context.Context) error { return s.store.Ping(ctx) }

// ensureProfile mantém o nome de exibição em dia a cada escrita do usuário
func (s *Service) ensureProfile(ctx context.Context, actor auth.Principal) error {
	return s.store.UpsertProfile(ctx, model.Profile{UserID: actor.UserID, DisplayName: actor.Name})
}

// changed invalida o cache de forma síncrona e publica o evento.
// Falha na publicação só gera log: a escrita já foi confirmada.
func (s *Service) changed(ctx context.Context, kind events.ChangeKind, tipID, actorID string, status model.Status) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("stats cache invalidate failed", zap.Error(err))
	}
	if s.events != nil {
		ev := events.TipChanged{
			TipID:    tipID,
			Kind:     kind,
			Status:   string(status),
			ActorID:  actorID,
			TsUnixMs: s.Now().UnixMilli(),
		}
		if err := s.events.PublishTipChanged(ctx, ev); err != nil {
			s.log.Warn("publish tip change failed", zap.String("tip_id", tipID), zap.String("kind", string(kind)), zap.Error(err))
		}
	}
	if s.OnWrite != nil {
		s.OnWrite(string(kind))
	}
}

// rejected conta recusas de política/autorização/unicidade
func (s *Service) rejected(err error) error {
	if s.OnReject == nil {
		return err
	}
	switch {
	case errors.Is(err, model.ErrForbidden):
		s.OnReject("forbidden")
	case errors.Is(err, model.ErrTipLocked):
		s.OnReject("tip_locked")
	case errors.Is(err, model.ErrInvalidTransition):
		s.OnReject("invalid_transition")
	case errors.Is(err, model.ErrTipNotPending):
		s.OnReject("not_pending")
	case errors.Is(err, model.ErrAlreadyTracked):
		s.OnReject("already_tracked")
	}
	return err
}

func tipIDs(tips []model.Tip) []string {
	ids := make([]string, 0, len(tips))
	for _, t := range tips {
		ids = append(ids, t.ID)
	}
	return ids
}

// views monta os tips com reações, comentários e flag de acompanhamento do viewer
func (s *Service) views(ctx context.Context, viewerID string, tips []model.Tip) ([]dto.TipView, error) {
	out := make([]dto.TipView, 0, len(tips))
	if len(tips) == 0 {
		return out, nil
	}
	ids := tipIDs(tips)

	reactions, err := s.store.ListReactions(ctx, ids)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.CountComments(ctx, ids)
	if err != nil {
		return nil, err
	}
	tracked := map[string]bool{}
	if viewerID != "" {
		stakes, err := s.store.ListStakes(ctx, repo.StakeFilter{UserID: viewerID})
		if err != nil {
			return nil, err
		}
		for _, st := range stakes {
			tracked[st.TipID] = true
		}
	}

	counts := social.Tally(reactions, viewerID)
	for _, t := range tips {
		out = append(out, dto.TipView{
			Tip:          t,
			Reactions:    counts[t.ID],
			CommentCount: comments[t.ID],
			Tracked:      tracked[t.ID],
		})
	}
	return out, nil
}

func (s *Service) ListTips(ctx context.Context, viewerID string, f repo.TipFilter) ([]dto.TipView, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, validate.Fields{"status": "must be one of: pending won lost void"}.Err()
	}
	tips, err := s.store.ListTips(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, viewerID, tips)
}

func (s *Service) GetTip(ctx context.Context, viewerID, id string) (dto.TipView, error) {
	t, err := s.store.GetTip(ctx, id)
	if err != nil {
		return dto.TipView{}, err
	}
	v, err := s.views(ctx, viewerID, []model.Tip{t})
	if err != nil {
		return dto.TipView{}, err
	}
	return v[0], nil
}

func (s *Service) CreateTip(ctx context.Context, actor auth.Principal, req dto.CreateTipRequest) (model.Tip, error) {
	if err := validate.CreateTip(&req); err != nil {
		return model.Tip{}, err
	}
	if err := s.ensureProfile(ctx, actor); err != nil {
		return model.Tip{}, err
	}

	t, err := s.store.CreateTip(ctx, actor.UserID, model.Tip{
		MatchName:      req.MatchName,
		Sport:          req.Sport,
		BetType:        req.BetType,
		Odds:           req.Odds,
		Analysis:       req.Analysis,
		MatchStartTime: req.MatchStartTime.UTC(),
	})
	if err != nil {
		return model.Tip{}, s.rejected(err)
	}

	s.changed(ctx, events.TipCreated, t.ID, actor.UserID, t.Status)
	return t, nil
}

func patchFrom(req dto.UpdateTipRequest) model.TipPatch {
	p := model.TipPatch{
		MatchName: req.MatchName,
		Sport:     req.Sport,
		BetType:   req.BetType,
		Odds:      req.Odds,
		Analysis:  req.Analysis,
	}
	if req.Status != nil {
		st := model.Status(*req.Status)
		p.Status = &st
	}
	if req.MatchStartTime != nil {
		ts := req.MatchStartTime.UTC()
		p.MatchStartTime = &ts
	}
	return p
}

func (s *Service) UpdateTip(ctx context.Context, actor auth.Principal, id string, req dto.UpdateTipRequest) (model.Tip, error) {
	if err := validate.UpdateTip(&req); err != nil {
		return model.Tip{}, err
	}
	return s.update(ctx, actor, id, patchFrom(req))
}

// SettleTip é o atalho do moderador para marcar won/lost/void
func (s *Service) SettleTip(ctx context.Context, actor auth.Principal, id string, req dto.SettleTipRequest) (model.Tip, error) {
	if err := validate.SettleTip(&req); err != nil {
		return model.Tip{}, err
	}
	st := model.Status(req.Status)
	return s.update(ctx, actor, id, model.TipPatch{Status: &st})
}

func (s *Service) update(ctx context.Context, actor auth.Principal, id string, p model.TipPatch) (model.Tip, error) {
	if err := s.ensureProfile(ctx, actor); err != nil {
		return model.Tip{}, err
	}
	t, err := s.store.UpdateTip(ctx, actor.UserID, id, p)
	if err != nil {
		return model.Tip{}, s.rejected(err)
	}

	kind := events.TipUpdated
	if p.Status != nil && t.Status.Terminal() {
		kind = events.TipSettled
	}
	s.changed(ctx, kind, t.ID, actor.UserID, t.Status)
	return t, nil
}

func (s *Service) TrackTip(ctx context.Context, actor auth.Principal, tipID string, req dto.TrackTipRequest) (model.Stake, error) {
	if err := validate.TrackTip(&req); err != nil {
		return model.Stake{}, err
	}
	if err := s.ensureProfile(ctx, actor); err != nil {
		return model.Stake{}, err
	}

	st, err := s.store.CreateStake(ctx, model.Stake{UserID: actor.UserID, TipID: tipID, Amount: req.Amount})
	if err != nil {
		return model.Stake{}, s.rejected(err)
	}

	s.changed(ctx, events.StakeCreated, tipID, actor.UserID, "")
	return st, nil
}

func (s *Service) UntrackTip(ctx context.Context, actor auth.Principal, tipID string) error {
	if err := s.store.DeleteStake(ctx, actor.UserID, tipID); err != nil {
		return err
	}
	s.changed(ctx, events.StakeDeleted, tipID, actor.UserID, "")
	return nil
}

// ToggleReaction remove a reação se existir, senão cria; nunca duplica
func (s *Service) ToggleReaction(ctx context.Context, actor auth.Principal, tipID, kind string) (dto.ReactionResponse, error) {
	if err := validate.ReactionKind(kind); err != nil {
		return dto.ReactionResponse{}, err
	}
	k := model.ReactionKind(kind)
	if _, err := s.store.GetTip(ctx, tipID); err != nil {
		return dto.ReactionResponse{}, err
	}
	if err := s.ensureProfile(ctx, actor); err != nil {
		return dto.ReactionResponse{}, err
	}

	removed, err := s.store.RemoveReaction(ctx, actor.UserID, tipID, k)
	if err != nil {
		return dto.ReactionResponse{}, err
	}
	if !removed {
		// corrida com outro toggle do mesmo usuário: a reação já existe, então fica ativa
		if _, err := s.store.AddReaction(ctx, model.Reaction{UserID: actor.UserID, TipID: tipID, Kind: k}); err != nil && !errors.Is(err, model.ErrReactionExists) {
			return dto.ReactionResponse{}, err
		}
	}

	reactions, err := s.store.ListReactions(ctx, []string{tipID})
	if err != nil {
		return dto.ReactionResponse{}, err
	}
	counts := social.Tally(reactions, actor.UserID)[tipID]

	s.changed(ctx, events.ReactionToggled, tipID, actor.UserID, "")
	return dto.ReactionResponse{TipID: tipID, Kind: k, Active: counts.Has(k), Counts: counts}, nil
}

func (s *Service) AddComment(ctx context.Context, actor auth.Principal, tipID string, req dto.CommentRequest) (model.Comment, error) {
	if err := validate.Comment(&req); err != nil {
		return model.Comment{}, err
	}
	if err := s.ensureProfile(ctx, actor); err != nil {
		return model.Comment{}, err
	}

	c, err := s.store.AddComment(ctx, model.Comment{UserID: actor.UserID, TipID: tipID, Content: req.Content})
	if err != nil {
		return model.Comment{}, err
	}
	c.DisplayName = actor.Name

	s.changed(ctx, events.CommentAdded, tipID, actor.UserID, "")
	return c, nil
}

func (s *Service) ListComments(ctx context.Context, tipID string) ([]model.Comment, error) {
	if _, err := s.store.GetTip(ctx, tipID); err != nil {
		return nil, err
	}
	out, err := s.store.ListComments(ctx, tipID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Comment{}
	}
	return out, nil
}

// cached lê do cache ou calcula e guarda; erro de cache nunca falha a leitura
func cached[T any](ctx context.Context, s *Service, name string, compute func() (T, error)) (T, error) {
	var v T
	key, ok, err := s.cache.Get(ctx, name, &v)
	if err != nil {
		s.log.Warn("stats cache get failed", zap.String("key", name), zap.Error(err))
	} else if ok {
		return v, nil
	}

	v, err = compute()
	if err != nil {
		return v, err
	}
	if key == "" {
		return v, nil
	}
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.log.Warn("stats cache set failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}

// userBook carrega os stakes de um usuário e os tips referenciados
func (s *Service) userBook(ctx context.Context, userID string) ([]model.Stake, []model.Tip, error) {
	stakes, err := s.store.ListStakes(ctx, repo.StakeFilter{UserID: userID})
	if err != nil {
		return nil, nil, err
	}
	if len(stakes) == 0 {
		return nil, nil, nil
	}
	ids := make([]string, 0, len(stakes))
	for _, st := range stakes {
		ids = append(ids, st.TipID)
	}
	tips, err := s.store.ListTips(ctx, repo.TipFilter{IDs: ids})
	if err != nil {
		return nil, nil, err
	}
	return stakes, tips, nil
}

// Tracking lista os tips acompanhados pelo usuário com lucro por stake e o resumo
func (s *Service) Tracking(ctx context.Context, userID string) (dto.TrackingResponse, error) {
	return cached(ctx, s, "tracking:"+userID, func() (dto.TrackingResponse, error) {
		stakes, tips, err := s.userBook(ctx, userID)
		if err != nil {
			return dto.TrackingResponse{}, err
		}

		byID := make(map[string]model.Tip, len(tips))
		for _, t := range tips {
			byID[t.ID] = t
		}
		items := make([]dto.TrackedTip, 0, len(stakes))
		for _, st := range stakes {
			t, ok := byID[st.TipID]
			if !ok {
				continue
			}
			items = append(items, dto.TrackedTip{
				Stake:  st,
				Tip:    t,
				Profit: accounting.StakeProfit(st.Amount, t).StringFixed(2),
			})
		}
		return dto.TrackingResponse{Items: items, Summary: accounting.Summarize(tips, stakes)}, nil
	})
}

func (s *Service) UserSummary(ctx context.Context, userID string) (accounting.Summary, error) {
	return cached(ctx, s, "summary:"+userID, func() (accounting.Summary, error) {
		stakes, tips, err := s.userBook(ctx, userID)
		if err != nil {
			return accounting.Summary{}, err
		}
		return accounting.Summarize(tips, stakes), nil
	})
}

// Leaderboard ranqueia por lucro; month != nil restringe aos stakes criados naquele mês
func (s *Service) Leaderboard(ctx context.Context, month *time.Time) ([]leaderboard.Entry, error) {
	opts := leaderboard.Options{Limit: s.LeaderboardSize}
	key := "leaderboard:all"
	if month != nil {
		since := leaderboard.MonthStart(month.UTC())
		until := since.AddDate(0, 1, 0)
		opts.Since, opts.Until = &since, &until
		key = "leaderboard:" + since.Format("2006-01")
	}
	return cached(ctx, s, key, func() ([]leaderboard.Entry, error) {
		stakes, err := s.store.ListStakes(ctx, repo.StakeFilter{Since: opts.Since})
		if err != nil {
			return nil, err
		}
		if len(stakes) == 0 {
			return []leaderboard.Entry{}, nil
		}

		seen := make(map[string]bool)
		var ids []string
		for _, st := range stakes {
			if !seen[st.TipID] {
				seen[st.TipID] = true
				ids = append(ids, st.TipID)
			}
		}
		tips, err := s.store.ListTips(ctx, repo.TipFilter{IDs: ids})
		if err != nil {
			return nil, err
		}
		byID := make(map[string]model.Tip, len(tips))
		for _, t := range tips {
			byID[t.ID] = t
		}

		rows := make([]leaderboard.Row, 0, len(stakes))
		for _, st := range stakes {
			if t, ok := byID[st.TipID]; ok {
				rows = append(rows, leaderboard.Row{Stake: st, Tip: t})
			}
		}
		return leaderboard.Aggregate(rows, opts), nil
	})
}

// Me resolve o papel efetivo no armazenamento; o token nunca define papel
func (s *Service) Me(ctx context.Context, actor auth.Principal) (dto.MeResponse, error) {
	if err := s.ensureProfile(ctx, actor); err != nil {
		return dto.MeResponse{}, err
	}
	roles, err := s.store.Roles(ctx, actor.UserID)
	if err != nil {
		return dto.MeResponse{}, err
	}
	role := model.EffectiveRole(roles...)
	return dto.MeResponse{
		UserID:      actor.UserID,
		Name:        actor.Name,
		Role:        role,
		IsModerator: role.IsModerator(),
	}, nil
}
