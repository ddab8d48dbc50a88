package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hangpark123/zoomnote/internal/auth"
	"github.com/hangpark123/zoomnote/internal/config"
	"github.com/hangpark123/zoomnote/internal/identity"
	"github.com/hangpark123/zoomnote/internal/logging"
	"github.com/hangpark123/zoomnote/internal/notify"
	"github.com/hangpark123/zoomnote/internal/rbac"
	"github.com/hangpark123/zoomnote/internal/search"
	"github.com/hangpark123/zoomnote/internal/serial"
	"github.com/hangpark123/zoomnote/internal/session"
	"github.com/hangpark123/zoomnote/internal/store"
	"github.com/hangpark123/zoomnote/internal/workflow"
)

type dataStore interface {
	GetUserByID(context.Context, string) (store.User, error)
	ListUsers(context.Context) ([]store.User, error)
	SetUserRole(context.Context, string, rbac.Role, func(rbac.Role, int) error) error
	SetSignature(context.Context, string, workflow.Signature) error
	ListNotes(context.Context, rbac.Scope) ([]store.Note, error)
	GetNote(context.Context, int64) (store.Note, error)
	CreateNote(context.Context, store.NewNote) (store.Note, error)
	UpdateNote(context.Context, int64, store.NoteUpdate) (store.Note, error)
	SetSlot(context.Context, int64, workflow.Slot, workflow.SlotState) (store.Note, error)
	DeleteNote(context.Context, int64) error
	Ping(ctx context.Context) error
}

type identityResolver interface {
	Resolve(context.Context, identity.Query, auth.Claims) (store.User, error)
	SyncDirectory(context.Context) (identity.SyncResult, error)
}

type noteNotifier interface {
	NoteCreated(context.Context, notify.NoteCreated)
}

type noteSearch interface {
	Search(context.Context, search.Query) search.Response
	IndexNote(context.Context, search.NoteRecord)
	DeleteNote(context.Context, int64)
}

// Deps are the collaborators of a Service. Notifier and Search are optional.
type Deps struct {
	Store    *store.PostgresStore
	Resolver *identity.Resolver
	Sessions *session.Cache
	Notifier *notify.Dispatcher
	Search   *search.Service
	Logger   logging.Logger
}

type Service struct {
	cfg      config.Config
	store    dataStore
	resolver identityResolver
	sessions *session.Cache
	decoder  *auth.Decoder
	notifier noteNotifier
	search   noteSearch
	logger   logging.Logger
	now      func() time.Time
}

func New(cfg config.Config, deps Deps) *Service {
	s := &Service{
		cfg:      cfg,
		store:    deps.Store,
		resolver: deps.Resolver,
		sessions: deps.Sessions,
		decoder:  auth.NewDecoder(cfg.ContextSecret),
		logger:   deps.Logger,
		now:      time.Now,
	}
	if deps.Notifier != nil {
		s.notifier = deps.Notifier
	}
	if deps.Search != nil {
		s.search = deps.Search
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) SessionTTL() time.Duration {
	return s.sessions.TTL()
}

// Credentials are the identity sources a request carries.
type Credentials struct {
	SessionHandle string
	Query         identity.Query
	ContextToken  string
}

// Caller is the resolved user of a request. Handle is set only when a new
// session was minted and has to be handed back to the client.
type Caller struct {
	User   store.User
	Handle string
}

// Identify resumes the caller's session or, failing that, resolves the
// caller from the query override, the platform context and the development
// identity, in that order, and mints a session.
func (s *Service) Identify(ctx context.Context, c Credentials) (Caller, error) {
	if c.SessionHandle != "" {
		u, err := s.sessions.Resume(ctx, c.SessionHandle)
		if err == nil {
			return Caller{User: u}, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			s.logger.Warn(ctx, "session lookup failed, resolving again", "error", err)
		}
	}

	claims, err := s.decoder.Decode(c.ContextToken)
	if errors.Is(err, auth.ErrAuthTag) {
		s.logger.Warn(ctx, "context envelope failed authentication", "error", err)
	}

	u, err := s.resolver.Resolve(ctx, c.Query, claims)
	if err != nil {
		return Caller{}, err
	}
	handle, err := s.sessions.Mint(ctx, u)
	if err != nil {
		// The user is known; they just resolve again next time.
		s.logger.Warn(ctx, "mint session failed", "user_id", u.ID, "error", err)
		return Caller{User: u}, nil
	}
	return Caller{User: u, Handle: handle}, nil
}

func (s *Service) Logout(ctx context.Context, handle string) error {
	return s.sessions.Invalidate(ctx, handle)
}

func (s *Service) MySignature(ctx context.Context, me store.User) (map[string]any, error) {
	u, err := s.store.GetUserByID(ctx, me.ID)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{
		"signatureData":      nil,
		"signatureType":      string(workflow.KindNone),
		"signatureUpdatedAt": u.SignatureUpdatedAt,
	}
	if u.Signature.Present() {
		payload["signatureData"] = u.Signature.Data
		payload["signatureType"] = string(u.Signature.Kind)
	}
	return payload, nil
}

func (s *Service) SetMySignature(ctx context.Context, me store.User, in SignatureInput) (map[string]any, error) {
	kind, err := workflow.ParseSignatureKind(in.SignatureType)
	if err != nil {
		return nil, err
	}
	sig := workflow.Signature{Kind: kind, Data: strings.TrimSpace(in.SignatureData)}
	if kind == workflow.KindNone {
		sig.Data = ""
	} else if sig.Data == "" {
		return nil, validationError("signatureData is required")
	}
	if err := s.store.SetSignature(ctx, me.ID, sig); err != nil {
		return nil, err
	}
	return map[string]any{"ok": true}, nil
}

func (s *Service) ListNotes(ctx context.Context, me store.User) (map[string]any, error) {
	notes, err := s.store.ListNotes(ctx, rbac.VisibleNotes(me.Subject()))
	if err != nil {
		return nil, err
	}
	return map[string]any{"me": me, "notes": newNoteViews(notes)}, nil
}

// visibleNote loads a note and hides it from callers outside its scope.
func (s *Service) visibleNote(ctx context.Context, me store.User, noteID int64) (store.Note, error) {
	n, err := s.store.GetNote(ctx, noteID)
	if err != nil {
		return store.Note{}, err
	}
	if !rbac.CanView(me.Subject(), n.Policy()) {
		return store.Note{}, rbac.ErrForbidden
	}
	return n, nil
}

func (s *Service) GetNote(ctx context.Context, me store.User, noteID int64) (noteView, error) {
	n, err := s.visibleNote(ctx, me, noteID)
	if err != nil {
		return noteView{}, err
	}
	return newNoteView(n), nil
}

type noteFields struct {
	title       string
	content     string
	periodStart *time.Time
	periodEnd   *time.Time
	weeklyGoal  string
}

func (in NoteInput) fields() (noteFields, error) {
	f := noteFields{
		title:      strings.TrimSpace(in.Title),
		content:    in.Content,
		weeklyGoal: strings.TrimSpace(in.WeeklyGoal),
	}
	if f.title == "" {
		return noteFields{}, validationError("title is required")
	}
	if strings.TrimSpace(f.content) == "" {
		return noteFields{}, validationError("content is required")
	}
	var err error
	if f.periodStart, err = parseOptionalDate("periodStart", in.PeriodStart); err != nil {
		return noteFields{}, err
	}
	if f.periodEnd, err = parseOptionalDate("periodEnd", in.PeriodEnd); err != nil {
		return noteFields{}, err
	}
	return f, nil
}

// schedule validates record date, year and week. All three are required.
func (in NoteInput) schedule() (time.Time, int, int, error) {
	if strings.TrimSpace(in.RecordDate) == "" {
		return time.Time{}, 0, 0, validationError("recordDate is required")
	}
	recordDate, err := parseDate("recordDate", in.RecordDate)
	if err != nil {
		return time.Time{}, 0, 0, err
	}
	year, week := int(in.ReportYear), int(in.ReportWeek)
	if year <= 0 {
		return time.Time{}, 0, 0, validationError("reportYear is required")
	}
	if err := serial.ValidateWeek(week); err != nil {
		return time.Time{}, 0, 0, err
	}
	return recordDate, year, week, nil
}

func (s *Service) CreateNote(ctx context.Context, me store.User, in NoteInput) (noteView, error) {
	if !rbac.Can(me.Role, rbac.ActionWrite) {
		return noteView{}, rbac.ErrForbidden
	}
	if !me.Signature.Present() {
		return noteView{}, domainError(http.StatusBadRequest, "SIGNATURE_REQUIRED", "Register a signature before writing notes", nil)
	}
	recordDate, year, week, err := in.schedule()
	if err != nil {
		return noteView{}, err
	}
	f, err := in.fields()
	if err != nil {
		return noteView{}, err
	}

	n, err := s.store.CreateNote(ctx, store.NewNote{
		WriterID:    me.ID,
		RecordDate:  recordDate,
		ReportYear:  year,
		ReportWeek:  week,
		Title:       f.title,
		Content:     f.content,
		PeriodStart: f.periodStart,
		PeriodEnd:   f.periodEnd,
		WeeklyGoal:  f.weeklyGoal,
	})
	if err != nil {
		return noteView{}, err
	}
	s.logger.Info(ctx, "note created", "note_id", n.ID, "serial_no", n.SerialNo, "writer_id", me.ID)

	if s.notifier != nil {
		s.notifier.NoteCreated(ctx, notify.NoteCreated{
			NoteID:      n.ID,
			SerialNo:    n.SerialNo,
			WriterName:  me.Name,
			Title:       n.Title,
			ReportYear:  n.ReportYear,
			ReportWeek:  n.ReportWeek,
			PeriodStart: n.PeriodStart,
			PeriodEnd:   n.PeriodEnd,
		})
	}
	s.index(ctx, n)
	return newNoteView(n), nil
}

func (s *Service) UpdateNote(ctx context.Context, me store.User, noteID int64, in NoteUpdateInput) (noteView, error) {
	adminMode := bool(in.AdminEdit)
	n, err := s.visibleNote(ctx, me, noteID)
	if err != nil {
		return noteView{}, err
	}
	if err := rbac.CheckEdit(me.Subject(), n.Policy(), adminMode); err != nil {
		return noteView{}, err
	}
	f, err := in.fields()
	if err != nil {
		return noteView{}, err
	}

	upd := store.NoteUpdate{
		Title:           f.title,
		Content:         f.content,
		PeriodStart:     f.periodStart,
		PeriodEnd:       f.periodEnd,
		WeeklyGoal:      f.weeklyGoal,
		RequireUnlocked: !adminMode,
	}
	if adminMode {
		if !rbac.CanMutateSchedulingFields(me.Subject(), adminMode) {
			return noteView{}, rbac.ErrForbidden
		}
		serialNo := strings.TrimSpace(in.SerialNo)
		if serialNo == "" || strings.TrimSpace(in.RecordDate) == "" || in.ReportYear <= 0 || in.ReportWeek <= 0 {
			return noteView{}, validationError("an admin edit needs recordDate, reportYear, reportWeek and serialNo")
		}
		recordDate, year, week, err := in.schedule()
		if err != nil {
			return noteView{}, err
		}
		upd.Schedule = &store.Schedule{RecordDate: recordDate, ReportYear: year, ReportWeek: week, SerialNo: serialNo}
	}

	updated, err := s.store.UpdateNote(ctx, noteID, upd)
	if err != nil {
		return noteView{}, err
	}
	if adminMode {
		s.logger.Info(ctx, "note changed by admin edit", "note_id", noteID, "actor_id", me.ID, "serial_no", updated.SerialNo)
	}
	s.index(ctx, updated)
	return newNoteView(updated), nil
}

func (s *Service) DeleteNote(ctx context.Context, me store.User, noteID int64) (map[string]any, error) {
	n, err := s.visibleNote(ctx, me, noteID)
	if err != nil {
		return nil, err
	}
	if err := rbac.CheckDelete(me.Subject(), n.Policy()); err != nil {
		return nil, err
	}
	if err := s.store.DeleteNote(ctx, noteID); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "note deleted", "note_id", noteID, "actor_id", me.ID, "serial_no", n.SerialNo)
	if s.search != nil {
		s.search.DeleteNote(ctx, noteID)
	}
	return map[string]any{"ok": true}, nil
}

// Sign applies or clears one approval slot. With ProxyUserID set, a master
// signs with the stored signature of the named delegate.
func (s *Service) Sign(ctx context.Context, me store.User, noteID int64, in SignInput) (noteView, error) {
	slot, err := workflow.ParseSlot(in.Role)
	if err != nil {
		return noteView{}, err
	}
	if _, err := s.visibleNote(ctx, me, noteID); err != nil {
		return noteView{}, err
	}

	req := workflow.Request{Slot: slot, Clear: in.Clear}
	if proxyID := strings.TrimSpace(in.ProxyUserID); proxyID != "" && !in.Clear {
		if !rbac.Can(me.Role, rbac.ActionProxySign) {
			return noteView{}, rbac.ErrForbidden
		}
		delegate, err := s.store.GetUserByID(ctx, proxyID)
		if errors.Is(err, store.ErrNotFound) {
			return noteView{}, validationError("proxy signer not found")
		}
		if err != nil {
			return noteView{}, err
		}
		p := delegate.Participant()
		req.Delegate = &p
	}

	state, err := workflow.Transition(me.Participant(), req, s.now())
	if err != nil {
		return noteView{}, err
	}
	n, err := s.store.SetSlot(ctx, noteID, slot, state)
	if err != nil {
		return noteView{}, err
	}
	s.logger.Info(ctx, "note slot changed", "note_id", noteID, "slot", string(slot), "clear", in.Clear,
		"actor_id", me.ID, "signer_id", state.SignerID)
	return newNoteView(n), nil
}

func (s *Service) SearchNotes(ctx context.Context, me store.User, text string, limit, offset int) search.Response {
	q := search.Query{Text: text, Scope: rbac.VisibleNotes(me.Subject()), Limit: limit, Offset: offset}
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: strings.TrimSpace(text), Engine: search.PgEngine}
	}
	return s.search.Search(ctx, q)
}

func (s *Service) ListUsers(ctx context.Context, me store.User, sync bool) (map[string]any, error) {
	if !rbac.CanListUsers(me.Subject()) {
		return nil, rbac.ErrForbidden
	}
	payload := map[string]any{}
	if sync {
		res, err := s.resolver.SyncDirectory(ctx)
		if err != nil {
			return nil, err
		}
		payload["sync"] = res
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]userSummary, 0, len(users))
	for _, u := range users {
		items = append(items, newUserSummary(u))
	}
	payload["users"] = items
	return payload, nil
}

func (s *Service) SetUserRole(ctx context.Context, me store.User, targetID, role string) (map[string]any, error) {
	if !rbac.Can(me.Role, rbac.ActionManageRoles) {
		return nil, rbac.ErrForbidden
	}
	next, err := rbac.ParseRole(role)
	if err != nil {
		return nil, validationError("role must be one of staff, leader, executive, admin, master")
	}
	err = s.store.SetUserRole(ctx, targetID, next, func(current rbac.Role, masters int) error {
		return rbac.CanMutateRole(me.Subject(), current, next, masters)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "user role changed", "user_id", targetID, "role", next.String(), "actor_id", me.ID)
	u, err := s.store.GetUserByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"ok": true, "user": newUserSummary(u)}, nil
}

func (s *Service) index(ctx context.Context, n store.Note) {
	if s.search == nil {
		return
	}
	s.search.IndexNote(ctx, search.NoteRecord{
		ID:           n.ID,
		SerialNo:     n.SerialNo,
		Title:        n.Title,
		Content:      n.Content,
		WeeklyGoal:   n.WeeklyGoal,
		WriterID:     n.WriterID,
		WriterName:   n.WriterName,
		DepartmentID: n.WriterDepartmentID,
		ReportYear:   n.ReportYear,
		ReportWeek:   n.ReportWeek,
	})
}
