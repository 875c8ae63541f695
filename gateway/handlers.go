package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/shopdash/pkg/backend"
	"github.com/example/shopdash/pkg/filter"
	"github.com/example/shopdash/pkg/listview"
	"github.com/example/shopdash/pkg/models"
	"github.com/example/shopdash/pkg/notify"
	"github.com/example/shopdash/pkg/repository"
)

const (
	roleAdmin  = models.RoleAdmin
	roleSeller = models.RoleSeller
	roleUser   = models.RoleUser
)

type sessionRequest struct {
	Token string `json:"token" binding:"required"`
}

type searchRequest struct {
	Q    string `json:"q"`
	From string `json:"from"`
}

func (g *Gateway) createSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}
	claims, err := ParseClaims(req.Token, g.config.Gateway.JWTSecret)
	if err != nil {
		g.logger.Info("Rejected session token", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "redirect": g.config.Gateway.LoginPath})
		return
	}

	sess := &repository.Session{
		ID:     uuid.NewString(),
		Token:  req.Token,
		UserID: claims.UserID,
		Role:   claims.DashboardRole(),
		ShopID: claims.ShopID,
	}
	if err := g.sessions.SaveSession(c.Request.Context(), sess, g.config.Session.TTL); err != nil {
		g.logger.Error("Failed to save session", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		return
	}

	c.SetCookie(CookieSession, sess.ID, int(g.config.Session.TTL/time.Second), "/", "", g.config.Session.SecureCookie, true)
	c.Header(HeaderSessionID, sess.ID)
	c.JSON(http.StatusCreated, gin.H{"sessionId": sess.ID, "userId": sess.UserID, "role": sess.Role})
}

func (g *Gateway) deleteSession(c *gin.Context) {
	sess := currentSession(c)
	g.endSession(c.Request.Context(), sess.ID)
	c.SetCookie(CookieSession, "", -1, "/", "", g.config.Session.SecureCookie, true)
	c.Status(http.StatusNoContent)
}

func (g *Gateway) endSession(ctx context.Context, id string) {
	g.views.drop(id)
	if err := g.sessions.DeleteSession(ctx, id); err != nil {
		g.logger.Warn("Failed to delete session", zap.String("session", id), zap.Error(err))
	}
}

func (g *Gateway) clientFor(sess *repository.Session) *backend.Client {
	return g.backend.WithTokens(backend.StaticToken(sess.Token))
}

// storeFor returns the session's views, building the store on first use.
func (g *Gateway) storeFor(sess *repository.Session) *listview.Store {
	return g.views.get(sess.ID, func() *listview.Store {
		opts := listview.DefaultOptions(sess.ID, g.config.Views.Location(), g.config.Views.Debounce, g.config.Views.StaleOnFail)
		opts.Notifier = g.notifier
		opts.Logger = g.logger.Named("views")

		var so []listview.StoreOption
		if g.system != nil {
			so = append(so, listview.Spawner(g.system, g.logger, 2*g.config.Backend.Timeout))
		}
		p := listview.Principal{UserID: sess.UserID, Role: sess.Role, ShopID: sess.ShopID}
		return listview.NewStore(g.clientFor(sess), p, opts, so...)
	})
}

// fail answers with the status err maps to. A backend 401 ends the session.
func (g *Gateway) fail(c *gin.Context, err error) {
	switch {
	case backend.IsUnauthorized(err):
		if sess := currentSession(c); sess != nil {
			g.endSession(c.Request.Context(), sess.ID)
		}
		g.unauthorized(c)
		return
	case errors.Is(err, listview.ErrUnknownView), errors.Is(err, listview.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, listview.ErrForbidden), errors.Is(err, listview.ErrNoShop):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	case errors.Is(err, listview.ErrUnsupported):
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": err.Error()})
		return
	case errors.Is(err, listview.ErrNotMounted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	body := gin.H{"error": backend.ToastMessage(err)}
	if be, ok := backend.As(err); ok && len(be.Fields) > 0 {
		body["fields"] = be.Fields
	}
	c.JSON(backend.HTTPStatus(err), body)
}

func (g *Gateway) criteria(q searchRequest) (filter.Criteria, error) {
	from, err := filter.ParseDate(q.From, g.config.Views.Location())
	if err != nil {
		return filter.Criteria{}, err
	}
	return filter.Criteria{Term: q.Q, MinDate: from}, nil
}

// queryCriteria reads ?q= and ?from=. It returns nil when neither is given,
// leaving the view's applied criteria alone.
func (g *Gateway) queryCriteria(c *gin.Context) (*filter.Criteria, error) {
	q, hasQ := c.GetQuery("q")
	from, hasFrom := c.GetQuery("from")
	if !hasQ && !hasFrom {
		return nil, nil
	}
	cr, err := g.criteria(searchRequest{Q: q, From: from})
	if err != nil {
		return nil, err
	}
	return &cr, nil
}

func (g *Gateway) listViews(c *gin.Context) {
	sess := currentSession(c)
	mounted := map[string]bool{}
	for _, name := range g.storeFor(sess).Mounted() {
		mounted[name] = true
	}
	out := make([]gin.H, 0)
	for name, f := range listview.Catalog() {
		if f.Allows(sess.Role) {
			out = append(out, gin.H{"name": name, "mounted": mounted[name]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i]["name"].(string) < out[j]["name"].(string) })
	c.JSON(http.StatusOK, gin.H{"views": out})
}

// open mounts the view if needed. On first mount a saved filter, if any, is
// applied. A failed first fetch is not an error here: the view carries it.
func (g *Gateway) open(c *gin.Context) (listview.View, bool) {
	sess := currentSession(c)
	name := c.Param("view")
	store := g.storeFor(sess)

	v, err := store.View(name)
	if err != nil {
		g.fail(c, err)
		return nil, false
	}
	fresh := !v.Mounted()
	if _, err := store.Open(c.Request.Context(), name); err != nil {
		switch {
		case errors.Is(err, listview.ErrNoShop):
			// stays unmounted so every request for it is refused
			store.Close(name)
			g.fail(c, err)
			return nil, false
		case backend.IsUnauthorized(err):
			g.fail(c, err)
			return nil, false
		}
	}
	if fresh && g.filters != nil {
		if saved, err := g.filters.Get(c.Request.Context(), sess.UserID, name); err == nil {
			cr := saved.Criteria()
			if _, err := v.Query(c.Request.Context(), &cr); err != nil && backend.IsUnauthorized(err) {
				g.fail(c, err)
				return nil, false
			}
		} else if !errors.Is(err, repository.ErrNotFound) {
			g.logger.Warn("Failed to load saved filter", zap.String("view", name), zap.Error(err))
		}
	}
	return v, true
}

func (g *Gateway) getView(c *gin.Context) {
	cr, err := g.queryCriteria(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be a YYYY-MM-DD date"})
		return
	}
	v, ok := g.open(c)
	if !ok {
		return
	}
	snap, err := v.Query(c.Request.Context(), cr)
	if err != nil && backend.IsUnauthorized(err) {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (g *Gateway) searchView(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cr, err := g.criteria(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be a YYYY-MM-DD date"})
		return
	}
	v, ok := g.open(c)
	if !ok {
		return
	}
	v.Search(cr)
	c.JSON(http.StatusAccepted, gin.H{"view": v.Name(), "criteria": cr})
}

func (g *Gateway) refreshView(c *gin.Context) {
	v, ok := g.open(c)
	if !ok {
		return
	}
	if err := v.Refresh(c.Request.Context()); err != nil && backend.IsUnauthorized(err) {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v.Snapshot(nil))
}

func (g *Gateway) closeView(c *gin.Context) {
	name := c.Param("view")
	if _, ok := listview.Catalog()[name]; !ok {
		g.fail(c, listview.ErrUnknownView)
		return
	}
	g.storeFor(currentSession(c)).Close(name)
	c.Status(http.StatusNoContent)
}

func (g *Gateway) previewRecord(c *gin.Context) {
	v, ok := g.open(c)
	if !ok {
		return
	}
	pv, found := v.Preview(c.Param("id"))
	if !found {
		g.fail(c, listview.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, pv)
}

// deleteRecord deletes only when called with ?confirm=true. Without it the
// confirmation prompt is returned with 428 and nothing is sent.
func (g *Gateway) deleteRecord(c *gin.Context) {
	v, ok := g.open(c)
	if !ok {
		return
	}
	sess := currentSession(c)
	id := c.Param("id")
	confirmed := c.Query("confirm") == "true"

	var prompt string
	confirm := listview.ConfirmFunc(func(_ context.Context, p string) (bool, error) {
		prompt = p
		return confirmed, nil
	})
	err := v.Delete(c.Request.Context(), id, confirm)
	if errors.Is(err, listview.ErrDeclined) {
		c.JSON(http.StatusPreconditionRequired, gin.H{"confirm": prompt})
		return
	}
	if errors.Is(err, listview.ErrNotFound) || errors.Is(err, listview.ErrUnsupported) {
		g.fail(c, err)
		return
	}
	// err is the backend delete's alone; a failed refetch only shows in the
	// snapshot's state.
	g.record(sess, v.Name(), "delete", id, err)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v.Snapshot(nil))
}

func (g *Gateway) getSavedFilter(c *gin.Context) {
	if g.filters == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "saved filters are disabled"})
		return
	}
	sess := currentSession(c)
	saved, err := g.filters.Get(c.Request.Context(), sess.UserID, c.Param("view"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no saved filter"})
		return
	}
	if err != nil {
		g.logger.Error("Failed to load saved filter", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "filter store unavailable"})
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (g *Gateway) putSavedFilter(c *gin.Context) {
	if g.filters == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "saved filters are disabled"})
		return
	}
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cr, err := g.criteria(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be a YYYY-MM-DD date"})
		return
	}
	v, ok := g.open(c)
	if !ok {
		return
	}
	sess := currentSession(c)
	saved, err := g.filters.Save(c.Request.Context(), sess.UserID, v.Name(), cr)
	if err != nil {
		g.logger.Error("Failed to save filter", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "filter store unavailable"})
		return
	}
	snap, err := v.Query(c.Request.Context(), &cr)
	if err != nil && backend.IsUnauthorized(err) {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"filter": saved, "view": snap})
}

func (g *Gateway) listToasts(c *gin.Context) {
	toasts := make([]notify.Toast, 0)
	if g.toasts != nil {
		got, err := g.toasts.Drain(c.Request.Context(), currentSession(c).ID)
		if err != nil {
			g.logger.Warn("Failed to drain toasts", zap.Error(err))
		}
		toasts = append(toasts, got...)
	}
	c.JSON(http.StatusOK, gin.H{"toasts": toasts})
}

func (g *Gateway) dashboardStats(c *gin.Context) {
	stats, err := g.clientFor(currentSession(c)).DashboardStats(c.Request.Context())
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// viewAudit lists the mutations recorded for a view, optionally for one
// entity (?entity=) and at most ?limit= of them.
func (g *Gateway) viewAudit(c *gin.Context) {
	trail, ok := g.audit.(AuditReader)
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "audit trail is disabled"})
		return
	}
	view := c.Param("view")
	if !slices.Contains(listview.Names(), view) {
		g.fail(c, fmt.Errorf("%w: %s", listview.ErrUnknownView, view))
		return
	}
	limit := int64(50)
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive number"})
			return
		}
		limit = n
	}
	entries, err := trail.AuditTrail(c.Request.Context(), view, c.Query("entity"), limit)
	if err != nil {
		g.logger.Warn("Failed to read audit trail", zap.String("view", view), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit trail unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": view, "entries": entries})
}

// record writes an audit entry off the request path.
func (g *Gateway) record(sess *repository.Session, view, action, entityID string, err error) {
	if g.audit == nil {
		return
	}
	entry := &repository.AuditEntry{
		Session:  sess.ID,
		UserID:   sess.UserID,
		Role:     string(sess.Role),
		View:     view,
		Action:   action,
		EntityID: entityID,
		Outcome:  "ok",
	}
	if err != nil {
		entry.Outcome = "error"
		entry.Message = err.Error()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.audit.RecordMutation(ctx, entry); err != nil {
			g.logger.Warn("Failed to write audit entry", zap.Error(err))
		}
	}()
}
