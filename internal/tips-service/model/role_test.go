package model

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestEffectiveRole(t *testing.T) {
	tests := []struct {
		name  string
		roles []Role
		want  Role
	}{
		{"no roles", nil, RoleUser},
		{"plain user", []Role{RoleUser}, RoleUser},
		{"moderator", []Role{RoleUser, RoleModerator}, RoleModerator},
		{"admin wins", []Role{RoleModerator, RoleAdmin, RoleUser}, RoleAdmin},
		{"unknown ignored", []Role{"superuser"}, RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveRole(tt.roles...); got != tt.want {
				t.Errorf("EffectiveRole(%v) = %s, want %s", tt.roles, got, tt.want)
			}
		})
	}
}

func TestRoleIsModerator(t *testing.T) {
	if RoleUser.IsModerator() {
		t.Error("user must not be moderator")
	}
	if !RoleModerator.IsModerator() || !RoleAdmin.IsModerator() {
		t.Error("moderator and admin must be moderators")
	}
}

func TestTipPatchChangesTerms(t *testing.T) {
	cur := Tip{
		MatchName:      "A vs B",
		Sport:          "football",
		BetType:        "home win",
		Odds:           decimal.RequireFromString("2.10"),
		Status:         StatusPending,
		MatchStartTime: time.Date(2026, 10, 1, 18, 0, 0, 0, time.UTC),
	}

	won := StatusWon
	sameOdds := decimal.RequireFromString("2.1")
	newOdds := decimal.RequireFromString("2.20")
	sameName := "A vs B"

	if (TipPatch{Status: &won}).ChangesTerms(cur) {
		t.Error("status-only patch must not change terms")
	}
	if (TipPatch{Odds: &sameOdds, MatchName: &sameName}).ChangesTerms(cur) {
		t.Error("patch with equal values must not change terms")
	}
	if !(TipPatch{Odds: &newOdds}).ChangesTerms(cur) {
		t.Error("odds change must change terms")
	}

	applied := TipPatch{Status: &won, Odds: &newOdds}.Apply(cur)
	if applied.Status != StatusWon || !applied.Odds.Equal(newOdds) {
		t.Errorf("unexpected apply result: %+v", applied)
	}
	if cur.Status != StatusPending {
		t.Error("apply must not mutate the original")
	}
}

func TestValidationErrorIs(t *testing.T) {
	err := error(&ValidationError{Fields: map[string]string{"odds": "too low", "sport": "required"}})
	if !errors.Is(err, ErrValidation) {
		t.Fatal("validation error must match ErrValidation")
	}
	if err.Error() != "validation failed: odds: too low; sport: required" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
