package auth

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/odyssey-erp/backoffice/internal/notify"
	"github.com/odyssey-erp/backoffice/internal/rbac"
	"github.com/odyssey-erp/backoffice/internal/rpc"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// CookieWriter sets and clears the browser session cookie.
type CookieWriter interface {
	SetCookie(w http.ResponseWriter, sess shared.Session)
	ClearCookie(w http.ResponseWriter)
}

// Handler exposes the auth.* procedures.
type Handler struct {
	service *Service
	inbox   *notify.Service
	cookies CookieWriter
}

// NewHandler builds a Handler. cookies may be nil for token-only clients.
func NewHandler(service *Service, inbox *notify.Service, cookies CookieWriter) *Handler {
	return &Handler{service: service, inbox: inbox, cookies: cookies}
}

// LoginResult is returned by auth.login.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      Profile   `json:"user"`
}

// IDInput addresses a single record.
type IDInput struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

// CountResult wraps a counter.
type CountResult struct {
	Count int64 `json:"count"`
}

// Register adds the auth procedures to reg.
func (h *Handler) Register(reg *rpc.Registry) {
	reg.Register(
		rpc.Mutation("auth.login", rpc.Public(), h.login),
		rpc.Mutation("auth.logout", rpc.Authenticated(), h.logout),
		rpc.Query("auth.session", rpc.Public(), h.session),
		rpc.Mutation("auth.updateProfile", rpc.Authenticated(), h.updateProfile),
		rpc.Mutation("auth.changePassword", rpc.Authenticated(), h.changePassword),
		rpc.Query("auth.notifications", rpc.Authenticated(), h.notifications),
		rpc.Query("auth.unreadCount", rpc.Authenticated(), h.unreadCount),
		rpc.Mutation("auth.markNotificationRead", rpc.Authenticated(), h.markRead),
		rpc.Mutation("auth.markAllNotificationsRead", rpc.Authenticated(), h.markAllRead),
	)
}

func (h *Handler) login(ctx context.Context, _ *rbac.Principal, in LoginInput) (LoginResult, error) {
	sess, user, err := h.service.Login(ctx, in, clientMeta(rpc.Request(ctx)))
	if err != nil {
		return LoginResult{}, err
	}
	if w := rpc.ResponseWriter(ctx); w != nil && h.cookies != nil {
		h.cookies.SetCookie(w, sess)
	}
	return LoginResult{
		Token:     sess.Token,
		ExpiresAt: sess.IssuedAt.Add(h.service.sessions.TTL()),
		User:      user.Profile(),
	}, nil
}

func (h *Handler) logout(ctx context.Context, _ *rbac.Principal, _ rpc.Empty) (bool, error) {
	sess, _ := shared.SessionFromContext(ctx)
	if err := h.service.Logout(ctx, sess.Token); err != nil {
		return false, err
	}
	if w := rpc.ResponseWriter(ctx); w != nil && h.cookies != nil {
		h.cookies.ClearCookie(w)
	}
	return true, nil
}

func (h *Handler) session(_ context.Context, p *rbac.Principal, _ rpc.Empty) (*rbac.Principal, error) {
	return p, nil
}

func (h *Handler) updateProfile(ctx context.Context, p *rbac.Principal, in UpdateProfileInput) (Profile, error) {
	return h.service.UpdateProfile(ctx, p.UserID, in)
}

func (h *Handler) changePassword(ctx context.Context, p *rbac.Principal, in ChangePasswordInput) (bool, error) {
	if err := h.service.ChangePassword(ctx, p.UserID, in); err != nil {
		return false, err
	}
	return true, nil
}

func (h *Handler) notifications(ctx context.Context, p *rbac.Principal, in notify.ListInput) (notify.ListResult, error) {
	return h.inbox.List(ctx, p.UserID, in)
}

func (h *Handler) unreadCount(ctx context.Context, p *rbac.Principal, _ rpc.Empty) (CountResult, error) {
	n, err := h.inbox.UnreadCount(ctx, p.UserID)
	return CountResult{Count: int64(n)}, err
}

func (h *Handler) markRead(ctx context.Context, p *rbac.Principal, in IDInput) (notify.Notification, error) {
	return h.inbox.MarkRead(ctx, p.UserID, in.ID)
}

func (h *Handler) markAllRead(ctx context.Context, p *rbac.Principal, _ rpc.Empty) (CountResult, error) {
	n, err := h.inbox.MarkAllRead(ctx, p.UserID)
	return CountResult{Count: n}, err
}

func clientMeta(r *http.Request) ClientMeta {
	if r == nil {
		return ClientMeta{}
	}
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return ClientMeta{IP: ip, UserAgent: r.UserAgent()}
}
