package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hangpark123/zoomnote/internal/dbx"
	"github.com/hangpark123/zoomnote/internal/rbac"
	"github.com/hangpark123/zoomnote/internal/serial"
	"github.com/hangpark123/zoomnote/internal/workflow"
)

var ErrNotFound = errors.New("not found")

type PostgresStore struct {
	db             *sql.DB
	serialAttempts int
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, serialAttempts: serial.DefaultMaxAttempts}
}

// WithSerialAttempts bounds how often note creation retries a lost
// serial number race.
func (s *PostgresStore) WithSerialAttempts(n int) *PostgresStore {
	if n > 0 {
		s.serialAttempts = n
	}
	return s
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const userColumns = `u.id, u.account_id, u.email, u.name, COALESCE(u.job_title, ''), COALESCE(u.department_id, 0),
	COALESCE(d.name, ''), u.role, COALESCE(u.signature_data, ''), u.signature_type, u.signature_updated_at,
	u.created_at, u.updated_at`

const userFrom = `FROM users u LEFT JOIN departments d ON d.id = u.department_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var (
		u         User
		sigKind   string
		sigUpdate sql.NullTime
	)
	err := row.Scan(&u.ID, &u.AccountID, &u.Email, &u.Name, &u.JobTitle, &u.DepartmentID,
		&u.DepartmentName, &u.Role, &u.Signature.Data, &sigKind, &sigUpdate,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	u.Signature.Kind = workflow.SignatureKind(sigKind)
	if sigUpdate.Valid {
		t := sigUpdate.Time
		u.SignatureUpdatedAt = &t
	}
	return u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` `+userFrom+` WHERE u.id = $1`, userID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` `+userFrom+`
		WHERE lower(u.email) = lower($1) ORDER BY u.created_at LIMIT 1`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// FindUser looks a user up by platform id first and email second.
func (s *PostgresStore) FindUser(ctx context.Context, userID, email string) (User, error) {
	if userID != "" {
		u, err := s.GetUserByID(ctx, userID)
		if err == nil || !errors.Is(err, ErrNotFound) {
			return u, err
		}
	}
	if email != "" {
		return s.GetUserByEmail(ctx, email)
	}
	return User{}, ErrNotFound
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` `+userFrom+`
		ORDER BY d.name IS NULL, d.name, u.name`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PostgresStore) EnsureDepartment(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `INSERT INTO departments (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensure department: %w", err)
	}
	return id, nil
}

// UpsertUser inserts the user or refreshes the non-empty profile fields of
// an existing row. Role is only ever set on insert.
func (s *PostgresStore) UpsertUser(ctx context.Context, in UserUpsert) (User, error) {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, account_id, email, name, job_title, department_id, role)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, 'staff')
		ON CONFLICT (id) DO UPDATE SET
			account_id = COALESCE(NULLIF(EXCLUDED.account_id, ''), users.account_id),
			email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
			name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
			job_title = COALESCE(EXCLUDED.job_title, users.job_title),
			department_id = COALESCE(EXCLUDED.department_id, users.department_id),
			updated_at = now()`,
		in.ID, in.AccountID, in.Email, in.Name, in.JobTitle, nullInt64(in.DepartmentID))
	if err != nil {
		return User{}, fmt.Errorf("upsert user: %w", err)
	}
	return s.GetUserByID(ctx, in.ID)
}

func (s *PostgresStore) UpdateUserProfile(ctx context.Context, userID string, p ProfileUpdate) error {
	if p.Empty() {
		return nil
	}
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.AccountID != nil {
		add("account_id", *p.AccountID)
	}
	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.JobTitle != nil {
		add("job_title", nullString(*p.JobTitle))
	}
	if p.DepartmentID != nil {
		add("department_id", nullInt64(*p.DepartmentID))
	}
	args = append(args, userID)
	query := fmt.Sprintf(`UPDATE users SET %s, updated_at = now() WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	return requireAffected(res)
}

// PromoteIfNoMaster makes userID a master when nobody holds that role.
func (s *PostgresStore) PromoteIfNoMaster(ctx context.Context, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET role = 'master', updated_at = now()
		WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM users WHERE role = 'master')`, userID)
	if err != nil {
		return false, fmt.Errorf("promote first master: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("promote first master: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) CountMasters(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = 'master'`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count masters: %w", err)
	}
	return n, nil
}

// SetUserRole changes a role inside one transaction. Every master row is
// locked first, in id order, so concurrent demotions serialize and check
// sees an exact master count.
func (s *PostgresStore) SetUserRole(ctx context.Context, userID string, next rbac.Role, check func(current rbac.Role, masters int) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rows, err := tx.QueryContext(ctx, `SELECT id FROM users WHERE role = 'master' ORDER BY id FOR UPDATE`)
		if err != nil {
			return fmt.Errorf("lock masters: %w", err)
		}
		masters := 0
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				_ = rows.Close()
				return fmt.Errorf("lock masters: %w", err)
			}
			masters++
		}
		if err := rows.Close(); err != nil {
			return fmt.Errorf("lock masters: %w", err)
		}

		var current rbac.Role
		err = tx.QueryRowContext(ctx, `SELECT role FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load role: %w", err)
		}
		if err := check(current, masters); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE users SET role = $1, updated_at = now() WHERE id = $2`, next, userID); err != nil {
			return fmt.Errorf("update role: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) SetSignature(ctx context.Context, userID string, sig workflow.Signature) error {
	kind := sig.Kind
	if kind == "" {
		kind = workflow.KindNone
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users
		SET signature_data = NULLIF($1, ''), signature_type = $2, signature_updated_at = now(), updated_at = now()
		WHERE id = $3`, sig.Data, string(kind), userID)
	if err != nil {
		return fmt.Errorf("set signature: %w", err)
	}
	return requireAffected(res)
}

const noteColumns = `rn.id, rn.writer_id, w.name, COALESCE(w.job_title, ''), w.role, COALESCE(w.department_id, 0),
	COALESCE(d.name, ''), rn.record_date, rn.report_year, rn.report_week, rn.serial_no, rn.title, rn.content,
	rn.period_start, rn.period_end, COALESCE(rn.weekly_goal, ''),
	rn.checker_id, rn.checker_signature_data, rn.checker_signature_type, rn.checker_signed_at, COALESCE(c.name, ''),
	rn.reviewer_id, rn.reviewer_signature_data, rn.reviewer_signature_type, rn.reviewer_signed_at, COALESCE(r.name, ''),
	rn.created_at, rn.updated_at`

const noteFrom = `FROM research_notes rn
	JOIN users w ON w.id = rn.writer_id
	LEFT JOIN departments d ON d.id = w.department_id
	LEFT JOIN users c ON c.id = rn.checker_id
	LEFT JOIN users r ON r.id = rn.reviewer_id`

type slotColumns struct {
	signer, data, kind, at string
}

var slotCols = map[workflow.Slot]slotColumns{
	workflow.SlotChecker:  {"checker_id", "checker_signature_data", "checker_signature_type", "checker_signed_at"},
	workflow.SlotReviewer: {"reviewer_id", "reviewer_signature_data", "reviewer_signature_type", "reviewer_signed_at"},
}

type nullSlot struct {
	signer, data, kind sql.NullString
	at                 sql.NullTime
}

func (ns nullSlot) state() workflow.SlotState {
	if !ns.signer.Valid {
		return workflow.Unsigned()
	}
	return workflow.SlotState{
		SignerID:  ns.signer.String,
		Signature: workflow.Signature{Data: ns.data.String, Kind: workflow.SignatureKind(ns.kind.String)},
		SignedAt:  ns.at.Time,
	}
}

func scanNote(row rowScanner) (Note, error) {
	var (
		n                      Note
		periodStart, periodEnd sql.NullTime
		checker, reviewer      nullSlot
	)
	err := row.Scan(&n.ID, &n.WriterID, &n.WriterName, &n.WriterJobTitle, &n.WriterRole, &n.WriterDepartmentID,
		&n.DepartmentName, &n.RecordDate, &n.ReportYear, &n.ReportWeek, &n.SerialNo, &n.Title, &n.Content,
		&periodStart, &periodEnd, &n.WeeklyGoal,
		&checker.signer, &checker.data, &checker.kind, &checker.at, &n.CheckerName,
		&reviewer.signer, &reviewer.data, &reviewer.kind, &reviewer.at, &n.ReviewerName,
		&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return Note{}, err
	}
	n.PeriodStart = timePtr(periodStart)
	n.PeriodEnd = timePtr(periodEnd)
	n.Checker = checker.state()
	n.Reviewer = reviewer.state()
	n.Attachments = []Attachment{}
	return n, nil
}

// ListNotes returns the notes inside scope, newest record date first.
func (s *PostgresStore) ListNotes(ctx context.Context, scope rbac.Scope) ([]Note, error) {
	query := `SELECT ` + noteColumns + ` ` + noteFrom
	var args []any
	switch scope.Kind {
	case rbac.ScopeAll:
	case rbac.ScopeDepartment:
		query += ` WHERE w.department_id = $1`
		args = append(args, scope.DepartmentID)
	default:
		query += ` WHERE rn.writer_id = $1`
		args = append(args, scope.UserID)
	}
	query += ` ORDER BY rn.record_date DESC, rn.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := []Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	if err := s.attach(ctx, notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (s *PostgresStore) GetNote(ctx context.Context, noteID int64) (Note, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+noteColumns+` `+noteFrom+` WHERE rn.id = $1`, noteID)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	if err != nil {
		return Note{}, fmt.Errorf("get note: %w", err)
	}
	notes := []Note{n}
	if err := s.attach(ctx, notes); err != nil {
		return Note{}, err
	}
	return notes[0], nil
}

func (s *PostgresStore) attach(ctx context.Context, notes []Note) error {
	if len(notes) == 0 {
		return nil
	}
	ids := make([]int64, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
	}
	byNote, err := s.ListAttachments(ctx, ids)
	if err != nil {
		return err
	}
	for i := range notes {
		if files, ok := byNote[notes[i].ID]; ok {
			notes[i].Attachments = files
		}
	}
	return nil
}

// ListAttachments returns attachment metadata grouped by note id.
func (s *PostgresStore) ListAttachments(ctx context.Context, noteIDs []int64) (map[int64][]Attachment, error) {
	out := map[int64][]Attachment{}
	if len(noteIDs) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(noteIDs))
	args := make([]any, len(noteIDs))
	for i, id := range noteIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, note_id, file_name, file_mime, file_size, created_at
		FROM research_note_files WHERE note_id IN (`+strings.Join(placeholders, ", ")+`) ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.NoteID, &a.FileName, &a.FileMime, &a.FileSize, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		out[a.NoteID] = append(out[a.NoteID], a)
	}
	return out, rows.Err()
}

// CreateNote allocates the next serial number for the note's week and
// inserts the note in the same transaction. A lost race on the serial
// unique constraint is retried; after the last attempt serial.ErrConflict
// is returned.
func (s *PostgresStore) CreateNote(ctx context.Context, in NewNote) (Note, error) {
	var id int64
	err := serial.Retry(ctx, s.serialAttempts, func(ctx context.Context, attempt int) error {
		return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			offset, err := serialOffset(ctx, tx, in.ReportYear)
			if err != nil {
				return err
			}
			seq, err := nextSequence(ctx, tx, in.ReportYear, in.ReportWeek)
			if err != nil {
				return err
			}
			serialNo := serial.Format(in.ReportYear, in.ReportWeek, serial.Display(offset, seq))
			err = tx.QueryRowContext(ctx, `INSERT INTO research_notes
				(writer_id, record_date, report_year, report_week, serial_no, serial_seq, title, content,
				 period_start, period_end, weekly_goal)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''))
				RETURNING id`,
				in.WriterID, in.RecordDate, in.ReportYear, in.ReportWeek, serialNo, seq, in.Title, in.Content,
				nullTimePtr(in.PeriodStart), nullTimePtr(in.PeriodEnd), in.WeeklyGoal).Scan(&id)
			if err != nil {
				return fmt.Errorf("insert note: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return Note{}, err
	}
	return s.GetNote(ctx, id)
}

func serialOffset(ctx context.Context, q dbx.DBTX, year int) (int, error) {
	var value string
	err := q.QueryRowContext(ctx, `SELECT config_value FROM system_config WHERE config_key = $1`, serial.OffsetKey(year)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read serial offset: %w", err)
	}
	return serial.ParseOffset(value)
}

// nextSequence bumps the per-week counter. The first note of a week seeds
// the counter from whatever notes already exist for it.
func nextSequence(ctx context.Context, q dbx.DBTX, year, week int) (int, error) {
	var seq int
	err := q.QueryRowContext(ctx, `INSERT INTO serial_counters (report_year, report_week, last_seq)
		VALUES ($1, $2, (SELECT COALESCE(MAX(serial_seq), 0) FROM research_notes WHERE report_year = $1 AND report_week = $2) + 1)
		ON CONFLICT (report_year, report_week) DO UPDATE SET
			last_seq = GREATEST(serial_counters.last_seq,
				(SELECT COALESCE(MAX(serial_seq), 0) FROM research_notes WHERE report_year = $1 AND report_week = $2)) + 1,
			updated_at = now()
		RETURNING last_seq`, year, week).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next serial sequence: %w", err)
	}
	return seq, nil
}

func (s *PostgresStore) UpdateNote(ctx context.Context, noteID int64, u NoteUpdate) (Note, error) {
	args := []any{u.Title, u.Content, nullTimePtr(u.PeriodStart), nullTimePtr(u.PeriodEnd), u.WeeklyGoal}
	sets := []string{"title = $1", "content = $2", "period_start = $3", "period_end = $4", "weekly_goal = NULLIF($5, '')"}
	if u.Schedule != nil {
		args = append(args, u.Schedule.RecordDate, u.Schedule.ReportYear, u.Schedule.ReportWeek, u.Schedule.SerialNo)
		sets = append(sets, "record_date = $6", "report_year = $7", "report_week = $8", "serial_no = $9", "serial_seq = NULL")
	}
	args = append(args, noteID)
	query := fmt.Sprintf(`UPDATE research_notes SET %s, updated_at = now() WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	if u.RequireUnlocked {
		query += ` AND checker_id IS NULL`
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return Note{}, fmt.Errorf("update note: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Note{}, fmt.Errorf("update note: %w", err)
	}
	if n == 0 {
		var locked bool
		err := s.db.QueryRowContext(ctx, `SELECT checker_id IS NOT NULL FROM research_notes WHERE id = $1`, noteID).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return Note{}, ErrNotFound
		}
		if err != nil {
			return Note{}, fmt.Errorf("update note: %w", err)
		}
		if locked {
			return Note{}, rbac.ErrLocked
		}
		return Note{}, ErrNotFound
	}
	return s.GetNote(ctx, noteID)
}

// SetSlot writes all four fields of one approval slot in a single statement.
func (s *PostgresStore) SetSlot(ctx context.Context, noteID int64, slot workflow.Slot, st workflow.SlotState) (Note, error) {
	cols, ok := slotCols[slot]
	if !ok {
		return Note{}, workflow.ErrUnknownSlot
	}
	var signedAt sql.NullTime
	if st.Signed() {
		signedAt = sql.NullTime{Time: st.SignedAt, Valid: true}
	}
	query := fmt.Sprintf(`UPDATE research_notes SET %s = $1, %s = $2, %s = $3, %s = $4, updated_at = now() WHERE id = $5`,
		cols.signer, cols.data, cols.kind, cols.at)
	res, err := s.db.ExecContext(ctx, query,
		nullString(st.SignerID), nullString(st.Signature.Data), nullString(string(st.Signature.Kind)), signedAt, noteID)
	if err != nil {
		return Note{}, fmt.Errorf("set %s slot: %w", slot, err)
	}
	if err := requireAffected(res); err != nil {
		return Note{}, err
	}
	return s.GetNote(ctx, noteID)
}

func (s *PostgresStore) DeleteNote(ctx context.Context, noteID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM research_notes WHERE id = $1`, noteID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) GetConfig(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT config_value FROM system_config WHERE config_key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get config %s: %w", key, err)
	}
	return value, true, nil
}

func (s *PostgresStore) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO system_config (config_key, config_value) VALUES ($1, $2)
		ON CONFLICT (config_key) DO UPDATE SET config_value = EXCLUDED.config_value, updated_at = now()`, key, value)
	if err != nil {
		return fmt.Errorf("set config %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) SerialOffset(ctx context.Context, year int) (int, error) {
	return serialOffset(ctx, s.db, year)
}

// RecentSerials returns the last few serials issued for year, newest first.
func (s *PostgresStore) RecentSerials(ctx context.Context, year, limit int) ([]SerialRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, serial_no, writer_id FROM research_notes
		WHERE report_year = $1 ORDER BY id DESC LIMIT $2`, year, limit)
	if err != nil {
		return nil, fmt.Errorf("recent serials: %w", err)
	}
	defer rows.Close()
	out := []SerialRecord{}
	for rows.Next() {
		var r SerialRecord
		if err := rows.Scan(&r.NoteID, &r.SerialNo, &r.WriterID); err != nil {
			return nil, fmt.Errorf("scan serial: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
