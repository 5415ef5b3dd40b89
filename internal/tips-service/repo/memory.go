package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/sports-tips-platform/internal/tips-service/model"
	"github.com/radieske/sports-tips-platform/internal/tips-service/policy"
	"github.com/radieske/sports-tips-platform/internal/tips-service/social"
)

// Memory implementa o mesmo contrato do Postgres em memória (STORE=memory, testes).
// As mesmas checagens do Guard rodam sob o lock de escrita.
type Memory struct {
	mu    sync.RWMutex
	guard *policy.Guard
	now   func() time.Time

	profiles  map[string]string
	roles     map[string]map[model.Role]struct{}
	tips      map[string]model.Tip
	stakes    []model.Stake
	reactions []model.Reaction
	comments  []model.Comment
}

func NewMemory(g *policy.Guard) *Memory {
	if g == nil {
		g = policy.NewGuard()
	}
	return &Memory{
		guard:    g,
		now:      g.Now,
		profiles: make(map[string]string),
		roles:    make(map[string]map[model.Role]struct{}),
		tips:     make(map[string]model.Tip),
	}
}

func (m *Memory) clock() time.Time {
	if m.now == nil {
		return time.Now().UTC()
	}
	return m.now().UTC()
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) withCreator(t model.Tip) model.Tip {
	t.CreatorName = m.profiles[t.CreatedBy]
	return t
}

func (m *Memory) ListTips(_ context.Context, f TipFilter) ([]model.Tip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids map[string]bool
	if f.IDs != nil {
		ids = make(map[string]bool, len(f.IDs))
		for _, id := range f.IDs {
			ids[id] = true
		}
	}

	var out []model.Tip
	for _, t := range m.tips {
		if f.Sport != "" && t.Sport != f.Sport {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if ids != nil && !ids[t.ID] {
			continue
		}
		out = append(out, m.withCreator(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) GetTip(_ context.Context, id string) (model.Tip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tips[id]
	if !ok {
		return model.Tip{}, model.ErrNotFound
	}
	return m.withCreator(t), nil
}

func (m *Memory) roleOf(userID string) model.Role {
	roles := make([]model.Role, 0, len(m.roles[userID]))
	for r := range m.roles[userID] {
		roles = append(roles, r)
	}
	return model.EffectiveRole(roles...)
}

func (m *Memory) Roles(_ context.Context, userID string) ([]model.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Role, 0, len(m.roles[userID]))
	for r := range m.roles[userID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *Memory) CreateTip(_ context.Context, actorID string, t model.Tip) (model.Tip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t.Status = model.StatusPending
	if err := m.guard.CheckCreate(m.roleOf(actorID), t); err != nil {
		return model.Tip{}, err
	}
	if _, ok := m.profiles[actorID]; !ok {
		return model.Tip{}, model.ErrNotFound
	}

	now := m.clock()
	t.ID = uuid.NewString()
	t.CreatedBy = actorID
	t.CreatedAt = now
	t.UpdatedAt = now
	m.tips[t.ID] = t
	return m.withCreator(t), nil
}

func (m *Memory) UpdateTip(_ context.Context, actorID, id string, patch model.TipPatch) (model.Tip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.tips[id]
	if !ok {
		return model.Tip{}, model.ErrNotFound
	}
	if err := m.guard.CheckUpdate(m.roleOf(actorID), cur, patch); err != nil {
		return model.Tip{}, err
	}

	next := patch.Apply(cur)
	next.UpdatedAt = m.clock()
	m.tips[id] = next
	return m.withCreator(next), nil
}

func (m *Memory) ListStakes(_ context.Context, f StakeFilter) ([]model.Stake, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Stake
	for _, s := range m.stakes {
		if f.UserID != "" && s.UserID != f.UserID {
			continue
		}
		if f.TipID != "" && s.TipID != f.TipID {
			continue
		}
		if f.Since != nil && s.CreatedAt.Before(*f.Since) {
			continue
		}
		s.DisplayName = m.profiles[s.UserID]
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CreateStake(_ context.Context, s model.Stake) (model.Stake, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tip, ok := m.tips[s.TipID]
	if !ok {
		return model.Stake{}, model.ErrNotFound
	}
	if err := m.guard.CheckTrack(tip); err != nil {
		return model.Stake{}, err
	}
	for _, cur := range m.stakes {
		if cur.UserID == s.UserID && cur.TipID == s.TipID {
			return model.Stake{}, model.ErrAlreadyTracked
		}
	}
	if !s.Amount.IsPositive() {
		return model.Stake{}, &model.ValidationError{Fields: map[string]string{"amount": "must be greater than 0"}}
	}

	s.ID = uuid.NewString()
	s.CreatedAt = m.clock()
	m.stakes = append(m.stakes, s)
	return s, nil
}

func (m *Memory) DeleteStake(_ context.Context, userID, tipID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, s := range m.stakes {
		if s.UserID == userID && s.TipID == tipID {
			m.stakes = append(m.stakes[:i], m.stakes[i+1:]...)
			return nil
		}
	}
	return model.ErrNotFound
}

func (m *Memory) ListReactions(_ context.Context, tipIDs []string) ([]model.Reaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if tipIDs == nil {
		return append([]model.Reaction(nil), m.reactions...), nil
	}
	want := make(map[string]bool, len(tipIDs))
	for _, id := range tipIDs {
		want[id] = true
	}
	var out []model.Reaction
	for _, r := range m.reactions {
		if want[r.TipID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) AddReaction(_ context.Context, r model.Reaction) (model.Reaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tips[r.TipID]; !ok {
		return model.Reaction{}, model.ErrNotFound
	}
	for _, cur := range m.reactions {
		if cur.UserID == r.UserID && cur.TipID == r.TipID && cur.Kind == r.Kind {
			return model.Reaction{}, model.ErrReactionExists
		}
	}
	r.ID = uuid.NewString()
	r.CreatedAt = m.clock()
	m.reactions = append(m.reactions, r)
	return r, nil
}

func (m *Memory) RemoveReaction(_ context.Context, userID, tipID string, kind model.ReactionKind) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := len(m.reactions)
	m.reactions = social.Toggle(m.reactions, userID, tipID, kind)
	if len(m.reactions) > before {
		// não existia: desfaz a inserção do toggle
		m.reactions = m.reactions[:before]
		return false, nil
	}
	return true, nil
}

func (m *Memory) ListComments(_ context.Context, tipID string) ([]model.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Comment
	for _, c := range m.comments {
		if c.TipID == tipID {
			c.DisplayName = m.profiles[c.UserID]
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Memory) CountComments(_ context.Context, tipIDs []string) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := social.CountComments(m.comments)
	if tipIDs == nil {
		return counts, nil
	}
	out := make(map[string]int, len(tipIDs))
	for _, id := range tipIDs {
		if n, ok := counts[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

func (m *Memory) AddComment(_ context.Context, c model.Comment) (model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tips[c.TipID]; !ok {
		return model.Comment{}, model.ErrNotFound
	}
	c.ID = uuid.NewString()
	c.CreatedAt = m.clock()
	m.comments = append(m.comments, c)
	return c, nil
}

func (m *Memory) UpsertProfile(_ context.Context, p model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.profiles[p.UserID]; !ok || p.DisplayName != "" {
		if p.DisplayName == "" {
			p.DisplayName = cur
		}
		m.profiles[p.UserID] = p.DisplayName
	}
	m.grant(p.UserID, model.RoleUser)
	return nil
}

func (m *Memory) GrantRole(_ context.Context, userID string, role model.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", model.ErrValidation, role)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[userID]; !ok {
		m.profiles[userID] = ""
	}
	m.grant(userID, role)
	return nil
}

func (m *Memory) grant(userID string, role model.Role) {
	if m.roles[userID] == nil {
		m.roles[userID] = make(map[model.Role]struct{})
	}
	m.roles[userID][role] = struct{}{}
}
