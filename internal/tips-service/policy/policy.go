package policy

import (
	"fmt"
	"time"

	"github.com/radieske/sports-tips-platform/internal/tips-service/model"
)

// CanTransition valida a máquina de estados do tip.
// pending -> pending|won|lost|void; won/lost/void são terminais
// (reaplicar o mesmo status terminal é no-op).
func CanTransition(from, to model.Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", model.ErrInvalidTransition, to)
	}
	if from == to {
		return nil
	}
	if from == model.StatusPending {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, from, to)
}

// Guard é o serviço de política que roda junto da camada de armazenamento.
// Todo store chama o Guard dentro do caminho de escrita, antes de persistir.
type Guard struct {
	Now func() time.Time
}

func NewGuard() *Guard { return &Guard{Now: time.Now} }

func (g *Guard) now() time.Time {
	if g == nil || g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

// AuthorizeTipWrite exige moderador ou admin
func (g *Guard) AuthorizeTipWrite(role model.Role) error {
	if !role.IsModerator() {
		return model.ErrForbidden
	}
	return nil
}

// CheckCreate valida a criação de um tip
func (g *Guard) CheckCreate(role model.Role, t model.Tip) error {
	if err := g.AuthorizeTipWrite(role); err != nil {
		return err
	}
	if t.Status != model.StatusPending {
		return fmt.Errorf("%w: new tips start as pending", model.ErrInvalidTransition)
	}
	return nil
}

// CheckUpdate aplica autorização, transição de status e anti-cheat.
// Depois do início da partida só o status pode mudar.
func (g *Guard) CheckUpdate(role model.Role, cur model.Tip, p model.TipPatch) error {
	if err := g.AuthorizeTipWrite(role); err != nil {
		return err
	}
	if p.Status != nil {
		if err := CanTransition(cur.Status, *p.Status); err != nil {
			return err
		}
	}
	if cur.Started(g.now()) && p.ChangesTerms(cur) {
		return model.ErrTipLocked
	}
	return nil
}

// CheckTrack só permite acompanhar tips pendentes cuja partida ainda não começou
func (g *Guard) CheckTrack(t model.Tip) error {
	if t.Status != model.StatusPending {
		return model.ErrTipNotPending
	}
	if t.Started(g.now()) {
		return model.ErrTipLocked
	}
	return nil
}
