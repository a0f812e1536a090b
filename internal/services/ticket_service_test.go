package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-support-backend/internal/domain"
	"github.com/tbourn/go-support-backend/internal/repo"
)

// ----- Fake repo -----

type fakeTicketRepo struct {
	// capture args
	created []*domain.Ticket

	// createErrs is consumed one per CreateTicket call; nil entries mean success.
	createErrs []error

	getID     string
	getTicket *domain.Ticket
	getErr    error

	updateID      string
	updateChanges map[string]any
	updateNow     string
	updateErr     error

	countStatus string
	countTotal  int64
	countErr    error

	pageStatus string
	pageOffset int
	pageLimit  int
	pageItems  []domain.Ticket
	pageErr    error
}

func (r *fakeTicketRepo) CreateTicket(ctx context.Context, db *gorm.DB, t *domain.Ticket) error {
	r.created = append(r.created, t)
	if len(r.createErrs) == 0 {
		return nil
	}
	err := r.createErrs[0]
	r.createErrs = r.createErrs[1:]
	return err
}

func (r *fakeTicketRepo) GetTicket(ctx context.Context, db *gorm.DB, ticketID string) (*domain.Ticket, error) {
	r.getID = ticketID
	return r.getTicket, r.getErr
}

func (r *fakeTicketRepo) UpdateTicket(ctx context.Context, db *gorm.DB, ticketID string, changes map[string]any, now string) error {
	r.updateID, r.updateChanges, r.updateNow = ticketID, changes, now
	return r.updateErr
}

func (r *fakeTicketRepo) CountTickets(ctx context.Context, db *gorm.DB, status string) (int64, error) {
	r.countStatus = status
	return r.countTotal, r.countErr
}

func (r *fakeTicketRepo) ListTicketsPage(ctx context.Context, db *gorm.DB, status string, offset, limit int) ([]domain.Ticket, error) {
	r.pageStatus, r.pageOffset, r.pageLimit = status, offset, limit
	return r.pageItems, r.pageErr
}

func sptr(s string) *string          { return &s }
func stptr(s domain.Status) *domain.Status { return &s }

// ----- Create -----

func TestNewTicketService_Defaults(t *testing.T) {
	r := &fakeTicketRepo{}
	s := NewTicketService(nil, r)

	if s.Repo != r {
		t.Fatalf("repo not set")
	}
	if s.MaxMessageRunes != 4000 {
		t.Fatalf("MaxMessageRunes default = 4000, got %d", s.MaxMessageRunes)
	}
	if s.IDAttempts != 5 {
		t.Fatalf("IDAttempts default = 5, got %d", s.IDAttempts)
	}
	if s.newID == nil {
		t.Fatalf("id generator not set")
	}
}

func TestCreate_EmptyMessage(t *testing.T) {
	s := NewTicketService(nil, &fakeTicketRepo{})
	if _, err := s.Create(context.Background(), CreateTicketInput{Message: "   "}); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestCreate_MessageTooLong(t *testing.T) {
	s := NewTicketService(nil, &fakeTicketRepo{})
	s.MaxMessageRunes = 5
	if _, err := s.Create(context.Background(), CreateTicketInput{Message: "too long for sure"}); !errors.Is(err, ErrMessageTooLong) {
		t.Fatalf("expected ErrMessageTooLong, got %v", err)
	}
}

func TestCreate_CallerSuppliedID_Validated(t *testing.T) {
	s := NewTicketService(nil, &fakeTicketRepo{})
	for _, id := range []string{"12345", "1234567", "12a456", "12 456", "-12345"} {
		if _, err := s.Create(context.Background(), CreateTicketInput{TicketID: id, Message: "m"}); !errors.Is(err, ErrInvalidTicketID) {
			t.Fatalf("id %q: expected ErrInvalidTicketID, got %v", id, err)
		}
	}
}

func TestCreate_CallerSuppliedID_Duplicate(t *testing.T) {
	r := &fakeTicketRepo{createErrs: []error{repo.ErrDuplicateKey}}
	s := NewTicketService(nil, r)
	if _, err := s.Create(context.Background(), CreateTicketInput{TicketID: "123456", Message: "m"}); !errors.Is(err, ErrDuplicateTicket) {
		t.Fatalf("expected ErrDuplicateTicket, got %v", err)
	}
}

func TestCreate_Success_SetsLifecycleFields(t *testing.T) {
	r := &fakeTicketRepo{}
	s := NewTicketService(nil, r)

	got, err := s.Create(context.Background(), CreateTicketInput{
		TicketID:      "123456",
		Message:       "  needs trimming  ",
		CustomerName:  sptr("Ada"),
		CorrelationID: sptr("ops-1"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.TicketID != "123456" || got.Message != "needs trimming" {
		t.Fatalf("unexpected ticket: %+v", got)
	}
	if got.Status != domain.StatusOpen {
		t.Fatalf("status = %q, want Open", got.Status)
	}
	if got.CreatedAt == "" || got.CreatedAt != got.UpdatedAt {
		t.Fatalf("timestamps must match at creation: %q vs %q", got.CreatedAt, got.UpdatedAt)
	}
	if _, err := time.Parse(domain.TimeLayout, got.CreatedAt); err != nil {
		t.Fatalf("created_at layout: %v", err)
	}
	if len(r.created) != 1 {
		t.Fatalf("expected one insert, got %d", len(r.created))
	}
}

func TestCreate_GeneratedID_RetriesOnCollision(t *testing.T) {
	r := &fakeTicketRepo{createErrs: []error{repo.ErrDuplicateKey, repo.ErrDuplicateKey, nil}}
	s := NewTicketService(nil, r)

	ids := []string{"000001", "000001", "000009"}
	s.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	got, err := s.Create(context.Background(), CreateTicketInput{Message: "m"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.TicketID != "000009" {
		t.Fatalf("ticket id = %q, want the third candidate", got.TicketID)
	}
	if len(r.created) != 3 {
		t.Fatalf("expected 3 insert attempts, got %d", len(r.created))
	}
}

func TestCreate_GeneratedID_Exhausted(t *testing.T) {
	r := &fakeTicketRepo{createErrs: []error{
		repo.ErrDuplicateKey, repo.ErrDuplicateKey, repo.ErrDuplicateKey,
	}}
	s := NewTicketService(nil, r)
	s.IDAttempts = 3
	s.newID = func() string { return "111111" }

	if _, err := s.Create(context.Background(), CreateTicketInput{Message: "m"}); !errors.Is(err, ErrIDExhausted) {
		t.Fatalf("expected ErrIDExhausted, got %v", err)
	}
}

func TestCreate_GeneratedID_SixDigits(t *testing.T) {
	for i := 0; i < 200; i++ {
		id := randomTicketID()
		if len(id) != 6 {
			t.Fatalf("generated id %q is not 6 chars", id)
		}
		if strings.TrimLeft(id, "0123456789") != "" {
			t.Fatalf("generated id %q has non-digits", id)
		}
	}
}

// ----- Get / UpdateStatus / Update -----

func TestGet_NotFound(t *testing.T) {
	r := &fakeTicketRepo{getErr: repo.ErrNotFound}
	s := NewTicketService(nil, r)
	if _, err := s.Get(context.Background(), "999999"); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
	if r.getID != "999999" {
		t.Fatalf("repo got id %q", r.getID)
	}
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	s := NewTicketService(nil, &fakeTicketRepo{})
	if err := s.UpdateStatus(context.Background(), "123456", "Closed"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	r := &fakeTicketRepo{updateErr: repo.ErrNotFound}
	s := NewTicketService(nil, r)
	if err := s.UpdateStatus(context.Background(), "123456", domain.StatusResolved); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
}

func TestUpdateStatus_Success(t *testing.T) {
	r := &fakeTicketRepo{}
	s := NewTicketService(nil, r)
	if err := s.UpdateStatus(context.Background(), "123456", domain.StatusInProgress); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if r.updateID != "123456" {
		t.Fatalf("update id = %q", r.updateID)
	}
	if got := r.updateChanges["status"]; got != "In Progress" {
		t.Fatalf("status change = %v", got)
	}
	if _, err := time.Parse(domain.TimeLayout, r.updateNow); err != nil {
		t.Fatalf("refresh timestamp layout: %v", err)
	}
}

func TestUpdate_EmptyPatch(t *testing.T) {
	s := NewTicketService(nil, &fakeTicketRepo{})
	if _, err := s.Update(context.Background(), "123456", UpdateTicketInput{}); !errors.Is(err, ErrEmptyUpdate) {
		t.Fatalf("expected ErrEmptyUpdate, got %v", err)
	}
}

func TestUpdate_InvalidFields(t *testing.T) {
	s := NewTicketService(nil, &fakeTicketRepo{})
	if _, err := s.Update(context.Background(), "123456", UpdateTicketInput{Message: sptr(" ")}); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if _, err := s.Update(context.Background(), "123456", UpdateTicketInput{Status: stptr("Nope")}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestUpdate_Success_BuildsChanges(t *testing.T) {
	want := &domain.Ticket{TicketID: "123456", Message: "new text", Status: domain.StatusInProgress}
	r := &fakeTicketRepo{getTicket: want}
	s := NewTicketService(nil, r)

	got, err := s.Update(context.Background(), "123456", UpdateTicketInput{
		Message:       sptr(" new text "),
		CustomerName:  sptr("Ada"),
		CorrelationID: sptr("ops-2"),
		Status:        stptr(domain.StatusInProgress),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got != want {
		t.Fatalf("expected re-read ticket to be returned")
	}
	if r.updateChanges["message"] != "new text" ||
		r.updateChanges["customer_name"] != "Ada" ||
		r.updateChanges["correlation_id"] != "ops-2" ||
		r.updateChanges["status"] != "In Progress" {
		t.Fatalf("unexpected changes: %#v", r.updateChanges)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	r := &fakeTicketRepo{updateErr: repo.ErrNotFound}
	s := NewTicketService(nil, r)
	if _, err := s.Update(context.Background(), "123456", UpdateTicketInput{Message: sptr("x")}); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
}

// ----- ListPage -----

func TestListPage_InvalidStatusFilter(t *testing.T) {
	s := NewTicketService(nil, &fakeTicketRepo{})
	if _, _, err := s.ListPage(context.Background(), "Weird", 1, 20); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestListPage_DefaultsAndOffset(t *testing.T) {
	r := &fakeTicketRepo{countTotal: 50, pageItems: []domain.Ticket{{TicketID: "1"}}}
	s := NewTicketService(nil, r)

	items, total, err := s.ListPage(context.Background(), "", 0, 0)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 50 || len(items) != 1 {
		t.Fatalf("total=%d items=%d", total, len(items))
	}
	if r.pageOffset != 0 || r.pageLimit != 20 {
		t.Fatalf("offset=%d limit=%d", r.pageOffset, r.pageLimit)
	}

	if _, _, err := s.ListPage(context.Background(), "Open", 3, 10); err != nil {
		t.Fatalf("ListPage page 3: %v", err)
	}
	if r.pageOffset != 20 || r.pageLimit != 10 || r.pageStatus != "Open" {
		t.Fatalf("offset=%d limit=%d status=%q", r.pageOffset, r.pageLimit, r.pageStatus)
	}
}

func TestListPage_EmptyTotalSkipsQuery(t *testing.T) {
	r := &fakeTicketRepo{countTotal: 0, pageErr: errors.New("must not be called")}
	s := NewTicketService(nil, r)

	items, total, err := s.ListPage(context.Background(), "", 1, 20)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 0 || items == nil || len(items) != 0 {
		t.Fatalf("expected empty page, got total=%d items=%v", total, items)
	}
}
