package notify

import (
	"context"
	"time"

	"github.com/odyssey-erp/backoffice/internal/shared"
)

// Repository reads and flips read state of a user's notifications.
type Repository interface {
	List(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]Notification, error)
	Count(ctx context.Context, userID int64, unreadOnly bool) (int, error)
	MarkRead(ctx context.Context, userID, id int64, at time.Time) (Notification, error)
	MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error)
}

// Service is the inbox for the acting user.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs an inbox Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// ListInput filters the inbox.
type ListInput struct {
	shared.PageRequest
	UnreadOnly bool `json:"unreadOnly"`
}

// ListResult is a page of notifications.
type ListResult struct {
	Notifications []Notification    `json:"notifications"`
	Pagination    shared.Pagination `json:"pagination"`
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID int64, in ListInput) (ListResult, error) {
	page := in.PageRequest.Normalize()
	total, err := s.repo.Count(ctx, userID, in.UnreadOnly)
	if err != nil {
		return ListResult{}, err
	}
	items, err := s.repo.List(ctx, userID, in.UnreadOnly, page.PageSize, page.Offset())
	if err != nil {
		return ListResult{}, err
	}
	if items == nil {
		items = []Notification{}
	}
	return ListResult{Notifications: items, Pagination: shared.NewPagination(page, total)}, nil
}

// UnreadCount returns the number of unread notifications.
func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.Count(ctx, userID, true)
}

// MarkRead flags one notification read. Another user's id is reported as not found.
func (s *Service) MarkRead(ctx context.Context, userID, id int64) (Notification, error) {
	n, err := s.repo.MarkRead(ctx, userID, id, s.now().UTC())
	if err != nil {
		if shared.IsKind(err, shared.KindNotFound) {
			return Notification{}, shared.NotFound("notification")
		}
		return Notification{}, err
	}
	return n, nil
}

// MarkAllRead flags every unread notification read and returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID, s.now().UTC())
}
