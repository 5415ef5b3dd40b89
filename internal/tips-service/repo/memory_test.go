package repo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/sports-tips-platform/internal/tips-service/model"
	"github.com/radieske/sports-tips-platform/internal/tips-service/policy"
	"github.com/radieske/sports-tips-platform/internal/tips-service/repo"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *repo.Memory {
	t.Helper()
	m := repo.NewMemory(&policy.Guard{Now: func() time.Time { return now }})
	ctx := context.Background()
	if err := m.UpsertProfile(ctx, model.Profile{UserID: "mod", DisplayName: "Moderator"}); err != nil {
		t.Fatal(err)
	}
	if err := m.GrantRole(ctx, "mod", model.RoleModerator); err != nil {
		t.Fatal(err)
	}
	if err := m.UpsertProfile(ctx, model.Profile{UserID: "ana", DisplayName: "Ana"}); err != nil {
		t.Fatal(err)
	}
	return m
}

func seedTip(t *testing.T, m *repo.Memory, start time.Time) model.Tip {
	t.Helper()
	tip, err := m.CreateTip(context.Background(), "mod", model.Tip{
		MatchName:      "Flamengo vs Palmeiras",
		Sport:          "football",
		BetType:        "home win",
		Odds:           decimal.RequireFromString("2.10"),
		MatchStartTime: start,
	})
	if err != nil {
		t.Fatalf("create tip: %v", err)
	}
	return tip
}

func TestCreateTip_RequiresModerator(t *testing.T) {
	m := newStore(t)
	_, err := m.CreateTip(context.Background(), "ana", model.Tip{
		MatchName: "x", Sport: "x", BetType: "x",
		Odds: decimal.RequireFromString("1.50"), MatchStartTime: now.Add(time.Hour),
	})
	if !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestCreateTip_ForcesPendingAndCreator(t *testing.T) {
	m := newStore(t)
	tip := seedTip(t, m, now.Add(time.Hour))
	if tip.Status != model.StatusPending {
		t.Errorf("status = %s", tip.Status)
	}
	if tip.CreatedBy != "mod" || tip.CreatorName != "Moderator" {
		t.Errorf("creator = %s/%s", tip.CreatedBy, tip.CreatorName)
	}
}

func TestUpdateTip_AntiCheat(t *testing.T) {
	m := newStore(t)
	ctx := context.Background()
	started := seedTip(t, m, now.Add(-time.Minute))
	future := seedTip(t, m, now.Add(time.Hour))

	odds := decimal.RequireFromString("3.00")
	if _, err := m.UpdateTip(ctx, "mod", started.ID, model.TipPatch{Odds: &odds}); !errors.Is(err, model.ErrTipLocked) {
		t.Fatalf("expected ErrTipLocked, got %v", err)
	}
	got, _ := m.GetTip(ctx, started.ID)
	if !got.Odds.Equal(started.Odds) {
		t.Errorf("odds changed to %s", got.Odds)
	}

	won := model.StatusWon
	if _, err := m.UpdateTip(ctx, "mod", started.ID, model.TipPatch{Status: &won}); err != nil {
		t.Fatalf("status change after start must pass: %v", err)
	}

	updated, err := m.UpdateTip(ctx, "mod", future.ID, model.TipPatch{Odds: &odds})
	if err != nil {
		t.Fatal(err)
	}
	if !updated.Odds.Equal(odds) {
		t.Errorf("odds = %s", updated.Odds)
	}
}

func TestUpdateTip_TerminalStatus(t *testing.T) {
	m := newStore(t)
	ctx := context.Background()
	tip := seedTip(t, m, now.Add(-time.Hour))

	lost := model.StatusLost
	if _, err := m.UpdateTip(ctx, "mod", tip.ID, model.TipPatch{Status: &lost}); err != nil {
		t.Fatal(err)
	}
	pending := model.StatusPending
	if _, err := m.UpdateTip(ctx, "mod", tip.ID, model.TipPatch{Status: &pending}); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestUpdateTip_RequiresModerator(t *testing.T) {
	m := newStore(t)
	tip := seedTip(t, m, now.Add(time.Hour))
	won := model.StatusWon
	if _, err := m.UpdateTip(context.Background(), "ana", tip.ID, model.TipPatch{Status: &won}); !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestCreateStake_DuplicateRejected(t *testing.T) {
	m := newStore(t)
	ctx := context.Background()
	tip := seedTip(t, m, now.Add(time.Hour))

	first := model.Stake{UserID: "ana", TipID: tip.ID, Amount: decimal.NewFromInt(10)}
	if _, err := m.CreateStake(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := first
	second.Amount = decimal.NewFromInt(50)
	if _, err := m.CreateStake(ctx, second); !errors.Is(err, model.ErrAlreadyTracked) {
		t.Fatalf("expected ErrAlreadyTracked, got %v", err)
	}

	stakes, _ := m.ListStakes(ctx, repo.StakeFilter{UserID: "ana"})
	if len(stakes) != 1 || !stakes[0].Amount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected stakes %+v", stakes)
	}
}

func TestCreateStake_OnlyPending(t *testing.T) {
	m := newStore(t)
	ctx := context.Background()
	tip := seedTip(t, m, now.Add(-time.Hour))
	void := model.StatusVoid
	if _, err := m.UpdateTip(ctx, "mod", tip.ID, model.TipPatch{Status: &void}); err != nil {
		t.Fatal(err)
	}
	_, err := m.CreateStake(ctx, model.Stake{UserID: "ana", TipID: tip.ID, Amount: decimal.NewFromInt(5)})
	if !errors.Is(err, model.ErrTipNotPending) {
		t.Fatalf("expected ErrTipNotPending, got %v", err)
	}
}

func TestCreateStake_AfterKickoffRejected(t *testing.T) {
	m := newStore(t)
	tip := seedTip(t, m, now.Add(-time.Minute))
	_, err := m.CreateStake(context.Background(), model.Stake{UserID: "ana", TipID: tip.ID, Amount: decimal.NewFromInt(5)})
	if !errors.Is(err, model.ErrTipLocked) {
		t.Fatalf("expected ErrTipLocked, got %v", err)
	}
}

func TestDeleteStake_OwnOnly(t *testing.T) {
	m := newStore(t)
	ctx := context.Background()
	tip := seedTip(t, m, now.Add(time.Hour))
	if _, err := m.CreateStake(ctx, model.Stake{UserID: "ana", TipID: tip.ID, Amount: decimal.NewFromInt(5)}); err != nil {
		t.Fatal(err)
	}

	if err := m.DeleteStake(ctx, "mod", tip.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("another user's stake must not be deleted: %v", err)
	}
	if err := m.DeleteStake(ctx, "ana", tip.ID); err != nil {
		t.Fatal(err)
	}
	stakes, _ := m.ListStakes(ctx, repo.StakeFilter{TipID: tip.ID})
	if len(stakes) != 0 {
		t.Fatalf("stake not removed: %+v", stakes)
	}
}

func TestReactions_UniquePerKind(t *testing.T) {
	m := newStore(t)
	ctx := context.Background()
	tip := seedTip(t, m, now.Add(time.Hour))

	r := model.Reaction{UserID: "ana", TipID: tip.ID, Kind: model.ReactionFire}
	if _, err := m.AddReaction(ctx, r); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddReaction(ctx, r); !errors.Is(err, model.ErrReactionExists) {
		t.Fatalf("expected ErrReactionExists, got %v", err)
	}
	r.Kind = model.ReactionLike
	if _, err := m.AddReaction(ctx, r); err != nil {
		t.Fatalf("like and fire are independent: %v", err)
	}

	removed, err := m.RemoveReaction(ctx, "ana", tip.ID, model.ReactionFire)
	if err != nil || !removed {
		t.Fatalf("removed=%v err=%v", removed, err)
	}
	removed, _ = m.RemoveReaction(ctx, "ana", tip.ID, model.ReactionFire)
	if removed {
		t.Fatal("second removal must report false")
	}
	list, _ := m.ListReactions(ctx, []string{tip.ID})
	if len(list) != 1 || list[0].Kind != model.ReactionLike {
		t.Fatalf("unexpected reactions %+v", list)
	}
}

func TestComments(t *testing.T) {
	m := newStore(t)
	ctx := context.Background()
	tip := seedTip(t, m, now.Add(time.Hour))

	for _, txt := range []string{"boa", "vamos"} {
		if _, err := m.AddComment(ctx, model.Comment{UserID: "ana", TipID: tip.ID, Content: txt}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := m.AddComment(ctx, model.Comment{UserID: "ana", TipID: "missing", Content: "x"}); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, _ := m.ListComments(ctx, tip.ID)
	if len(list) != 2 || list[0].Content != "boa" || list[0].DisplayName != "Ana" {
		t.Fatalf("unexpected comments %+v", list)
	}
	counts, _ := m.CountComments(ctx, []string{tip.ID, "other"})
	if counts[tip.ID] != 2 || counts["other"] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestListTips_Filters(t *testing.T) {
	m := newStore(t)
	ctx := context.Background()
	a := seedTip(t, m, now.Add(time.Hour))
	seedTip(t, m, now.Add(2*time.Hour))

	all, _ := m.ListTips(ctx, repo.TipFilter{})
	if len(all) != 2 {
		t.Fatalf("len = %d", len(all))
	}
	byID, _ := m.ListTips(ctx, repo.TipFilter{IDs: []string{a.ID}})
	if len(byID) != 1 || byID[0].ID != a.ID {
		t.Fatalf("unexpected %+v", byID)
	}
	none, _ := m.ListTips(ctx, repo.TipFilter{Sport: "tennis"})
	if len(none) != 0 {
		t.Fatalf("unexpected %+v", none)
	}
}

func TestRoles(t *testing.T) {
	m := newStore(t)
	roles, _ := m.Roles(context.Background(), "mod")
	if model.EffectiveRole(roles...) != model.RoleModerator {
		t.Fatalf("roles = %v", roles)
	}
	if err := m.GrantRole(context.Background(), "ana", "owner"); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGrantRole_BeforeProfileExists(t *testing.T) {
	m := repo.NewMemory(&policy.Guard{Now: func() time.Time { return now }})
	ctx := context.Background()

	if err := m.GrantRole(ctx, "seeded", model.RoleModerator); err != nil {
		t.Fatalf("grant on unknown user: %v", err)
	}
	roles, _ := m.Roles(ctx, "seeded")
	if model.EffectiveRole(roles...) != model.RoleModerator {
		t.Fatalf("roles = %v", roles)
	}

	tip, err := m.CreateTip(ctx, "seeded", model.Tip{
		MatchName: "Grêmio vs Inter", Sport: "football", BetType: "draw",
		Odds: decimal.RequireFromString("3.20"), MatchStartTime: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("seeded moderator must create tips: %v", err)
	}

	// o primeiro login completa o nome sem perder o papel
	if err := m.UpsertProfile(ctx, model.Profile{UserID: "seeded", DisplayName: "Seeded"}); err != nil {
		t.Fatal(err)
	}
	got, _ := m.GetTip(ctx, tip.ID)
	if got.CreatorName != "Seeded" {
		t.Errorf("creator name = %q", got.CreatorName)
	}
	roles, _ = m.Roles(ctx, "seeded")
	if model.EffectiveRole(roles...) != model.RoleModerator {
		t.Fatalf("roles after login = %v", roles)
	}
}
