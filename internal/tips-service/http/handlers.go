package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/radieske/sports-tips-platform/internal/tips-service/dto"
	"github.com/radieske/sports-tips-platform/internal/tips-service/model"
	"github.com/radieske/sports-tips-platform/internal/tips-service/repo"
	"github.com/radieske/sports-tips-platform/internal/tips-service/validate"
)

// listTips aceita ?sport= e ?status=
func (a *API) listTips(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	views, err := a.Svc.ListTips(r.Context(), viewerID(r), repo.TipFilter{
		Sport:  q.Get("sport"),
		Status: model.Status(q.Get("status")),
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) getTip(w http.ResponseWriter, r *http.Request) {
	v, err := a.Svc.GetTip(r.Context(), viewerID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *API) createTip(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTipRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	t, err := a.Svc.CreateTip(r.Context(), principal(r), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (a *API) updateTip(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateTipRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	t, err := a.Svc.UpdateTip(r.Context(), principal(r), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) settleTip(w http.ResponseWriter, r *http.Request) {
	var req dto.SettleTipRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	t, err := a.Svc.SettleTip(r.Context(), principal(r), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) trackTip(w http.ResponseWriter, r *http.Request) {
	var req dto.TrackTipRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	st, err := a.Svc.TrackTip(r.Context(), principal(r), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (a *API) untrackTip(w http.ResponseWriter, r *http.Request) {
	if err := a.Svc.UntrackTip(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) toggleReaction(w http.ResponseWriter, r *http.Request) {
	res, err := a.Svc.ToggleReaction(r.Context(), principal(r), chi.URLParam(r, "id"), chi.URLParam(r, "kind"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) listComments(w http.ResponseWriter, r *http.Request) {
	list, err := a.Svc.ListComments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) addComment(w http.ResponseWriter, r *http.Request) {
	var req dto.CommentRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	c, err := a.Svc.AddComment(r.Context(), principal(r), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	me, err := a.Svc.Me(r.Context(), principal(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, me)
}

func (a *API) myTracking(w http.ResponseWriter, r *http.Request) {
	tr, err := a.Svc.Tracking(r.Context(), principal(r).UserID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (a *API) userSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := a.Svc.UserSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// leaderboard: sem ?month= é o ranking geral; com YYYY-MM restringe ao mês
func (a *API) leaderboard(w http.ResponseWriter, r *http.Request) {
	var since *time.Time
	if m := r.URL.Query().Get("month"); m != "" {
		t, err := validate.Month(m)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		since = &t
	}
	entries, err := a.Svc.Leaderboard(r.Context(), since)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
