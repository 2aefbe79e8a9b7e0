package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"   // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/prizeboard/internal/domain/model"
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLStore implements Store on database/sql.
type SQLStore struct {
	db              *sql.DB
	driver          string
	maxOpenConns    int
	connMaxLifetime time.Duration
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sql.DB, opts ...Option) *SQLStore {
	s := &SQLStore{db: db, driver: DriverSQLite}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxOpenConns == 0 && s.driver == DriverSQLite {
		// sqlite allows a single writer; one connection avoids SQLITE_BUSY.
		s.maxOpenConns = 1
	}
	if s.maxOpenConns > 0 {
		s.db.SetMaxOpenConns(s.maxOpenConns)
	}
	if s.connMaxLifetime > 0 {
		s.db.SetConnMaxLifetime(s.connMaxLifetime)
	}
	return s
}

// OpenSQL opens and pings a database for driver at dsn.
func OpenSQL(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return NewSQLStore(db, append([]Option{WithDriver(driver)}, opts...)...), nil
}

// Migrate creates the schema if it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close implements Store.
func (s *SQLStore) Close() error { return s.db.Close() }

// q rewrites ? placeholders to $n for postgres.
func (s *SQLStore) q(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const contestColumns = `id, title, brand, status, deadline_ms, engagement_pool, creativity_pool`

func scanContest(row interface{ Scan(...any) error }) (model.Contest, error) {
	var (
		c  model.Contest
		ms int64
	)
	if err := row.Scan(&c.ID, &c.Title, &c.Brand, &c.Status, &ms, &c.EngagementPool, &c.CreativityPool); err != nil {
		return model.Contest{}, err
	}
	c.Deadline = time.UnixMilli(ms).UTC()
	return c, nil
}

// EndedContests implements settlement.ContestSource.
func (s *SQLStore) EndedContests(ctx context.Context, now time.Time) ([]model.Contest, error) {
	defer observeQuery(time.Now())
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT `+contestColumns+` FROM contests WHERE deadline_ms < ? ORDER BY deadline_ms, id`),
		now.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.Contest, 0)
	for rows.Next() {
		c, err := scanContest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Contest implements ContestStore.
func (s *SQLStore) Contest(ctx context.Context, id string) (model.Contest, error) {
	defer observeQuery(time.Now())
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+contestColumns+` FROM contests WHERE id = ?`), id)
	c, err := scanContest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Contest{}, fmt.Errorf("contest %s: %w", id, ErrNotFound)
	}
	return c, err
}

// SaveContest implements ContestStore.
func (s *SQLStore) SaveContest(ctx context.Context, c model.Contest) error {
	defer observeUpdate(time.Now())
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO contests (`+contestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			brand = excluded.brand,
			status = excluded.status,
			deadline_ms = excluded.deadline_ms,
			engagement_pool = excluded.engagement_pool,
			creativity_pool = excluded.creativity_pool`),
		c.ID, c.Title, c.Brand, c.Status, c.Deadline.UnixMilli(), c.EngagementPool, c.CreativityPool)
	return err
}

// PrizeTiers implements settlement.ContestSource.
func (s *SQLStore) PrizeTiers(ctx context.Context, contestID string) ([]model.PrizeTier, error) {
	defer observeQuery(time.Now())
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, contest_id, kind, label, rank_min, rank_max, amount
		FROM prize_tiers WHERE contest_id = ? ORDER BY position`), contestID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.PrizeTier, 0)
	for rows.Next() {
		var (
			t    model.PrizeTier
			kind string
		)
		if err := rows.Scan(&t.ID, &t.ContestID, &kind, &t.Label, &t.RankMin, &t.RankMax, &t.Amount); err != nil {
			return nil, err
		}
		t.Kind = model.LeaderboardKind(kind)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ReplacePrizeTiers implements ContestStore.
func (s *SQLStore) ReplacePrizeTiers(ctx context.Context, contestID string, tiers []model.PrizeTier) (err error) {
	defer observeUpdate(time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	if err = tx.QueryRowContext(ctx, s.q(`SELECT 1 FROM contests WHERE id = ?`), contestID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = fmt.Errorf("contest %s: %w", contestID, ErrNotFound)
		}
		return err
	}
	if _, err = tx.ExecContext(ctx, s.q(`DELETE FROM prize_tiers WHERE contest_id = ?`), contestID); err != nil {
		return err
	}
	for i, t := range tiers {
		if _, err = tx.ExecContext(ctx, s.q(`
			INSERT INTO prize_tiers (id, contest_id, kind, label, rank_min, rank_max, amount, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			t.ID, contestID, string(t.Kind), t.Label, t.RankMin, t.RankMax, t.Amount, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const entryColumns = `submission_id, participant_id, contest_id, status, engagement_score, creativity_score, likes, comments, shares, views`

func scanEntry(row interface{ Scan(...any) error }) (model.Entry, error) {
	var (
		e                      model.Entry
		status                 string
		engagement, creativity sql.NullFloat64
	)
	if err := row.Scan(&e.SubmissionID, &e.ParticipantID, &e.ContestID, &status,
		&engagement, &creativity, &e.Likes, &e.Comments, &e.Shares, &e.Views); err != nil {
		return model.Entry{}, err
	}
	e.Status = model.EntryStatus(status)
	if engagement.Valid {
		e.EngagementScore = model.Float(engagement.Float64)
	}
	if creativity.Valid {
		e.CreativityScore = model.Float(creativity.Float64)
	}
	return e, nil
}

func nullable(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

// ApprovedEntries implements settlement.ContestSource.
func (s *SQLStore) ApprovedEntries(ctx context.Context, contestID string) ([]model.Entry, error) {
	defer observeQuery(time.Now())
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT `+entryColumns+` FROM entries
		WHERE contest_id = ? AND status = ? ORDER BY position`),
		contestID, string(model.StatusApproved))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Entry implements ContestStore.
func (s *SQLStore) Entry(ctx context.Context, submissionID string) (model.Entry, error) {
	defer observeQuery(time.Now())
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+entryColumns+` FROM entries WHERE submission_id = ?`), submissionID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Entry{}, fmt.Errorf("submission %s: %w", submissionID, ErrNotFound)
	}
	return e, err
}

// UpsertEntry implements ContestStore. The WHERE clause on the SELECT is
// required by sqlite to parse the upsert; the casts type the parameters
// for postgres. An update is skipped when the stored row belongs to another
// contest, which leaves no affected rows.
func (s *SQLStore) UpsertEntry(ctx context.Context, e model.Entry) error {
	defer observeUpdate(time.Now())
	if _, err := s.Contest(ctx, e.ContestID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO entries (`+entryColumns+`, position)
		SELECT ?, ?, ?, ?,
			CAST(? AS DOUBLE PRECISION), CAST(? AS DOUBLE PRECISION),
			CAST(? AS BIGINT), CAST(? AS BIGINT), CAST(? AS BIGINT), CAST(? AS BIGINT),
			COALESCE(MAX(position), 0) + 1
		FROM entries WHERE contest_id = ?
		ON CONFLICT (submission_id) DO UPDATE SET
			participant_id = excluded.participant_id,
			status = excluded.status,
			engagement_score = excluded.engagement_score,
			creativity_score = excluded.creativity_score,
			likes = excluded.likes,
			comments = excluded.comments,
			shares = excluded.shares,
			views = excluded.views
		WHERE entries.contest_id = excluded.contest_id`),
		e.SubmissionID, e.ParticipantID, e.ContestID, string(e.Status),
		nullable(e.EngagementScore), nullable(e.CreativityScore),
		e.Likes, e.Comments, e.Shares, e.Views, e.ContestID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("submission %s: %w", e.SubmissionID, ErrEntryMoved)
	}
	return nil
}

// HasCredit implements settlement.Ledger.
func (s *SQLStore) HasCredit(ctx context.Context, key model.CreditKey) (bool, error) {
	defer observeQuery(time.Now())
	var one int
	err := s.db.QueryRowContext(ctx, s.q(`SELECT 1 FROM wallet_transactions WHERE credit_key = ?`), key.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

const insertTransaction = `
	INSERT INTO wallet_transactions
		(id, participant_id, type, amount, reason, contest_id, kind, prize_rank, prize_tier_id, credit_key, created_at_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func transactionArgs(tx model.Transaction, creditKey sql.NullString) []any {
	return []any{
		tx.ID, tx.ParticipantID, string(tx.Type), tx.Amount, tx.Reason,
		tx.ContestID, string(tx.Kind), tx.Rank, tx.PrizeTierID, creditKey, tx.CreatedAt.UnixMilli(),
	}
}

// RecordCredit implements settlement.Ledger. The unique credit_key turns a
// concurrent duplicate into a no-op insert.
func (s *SQLStore) RecordCredit(ctx context.Context, tx model.Transaction) error {
	defer observeUpdate(time.Now())
	tx.Type = model.Credit
	key := tx.Key()
	res, err := s.db.ExecContext(ctx, s.q(insertTransaction+` ON CONFLICT (credit_key) DO NOTHING`),
		transactionArgs(tx, sql.NullString{String: key.String(), Valid: true})...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("credit %s: %w", key, ErrDuplicateCredit)
	}
	return nil
}

const balanceQuery = `
	SELECT COALESCE(SUM(CASE WHEN type = 'credit' THEN amount ELSE -amount END), 0)
	FROM wallet_transactions WHERE participant_id = ?`

// lockParticipant serialises ledger writes for one participant on postgres.
// sqlite runs on a single connection and needs no lock.
func (s *SQLStore) lockParticipant(ctx context.Context, tx *sql.Tx, participantID string) error {
	if s.driver != DriverPostgres {
		return nil
	}
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, participantID)
	return err
}

const pendingQuery = `
	SELECT COALESCE(SUM(amount), 0)
	FROM payouts WHERE participant_id = ? AND status = 'pending'`

// CreatePayout implements Ledger. The balance check counts other pending
// payouts so that approving all of them cannot overdraw.
func (s *SQLStore) CreatePayout(ctx context.Context, p model.Payout) (err error) {
	defer observeUpdate(time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.lockParticipant(ctx, tx, p.ParticipantID); err != nil {
		return err
	}
	var balance, pending float64
	if err = tx.QueryRowContext(ctx, s.q(balanceQuery), p.ParticipantID).Scan(&balance); err != nil {
		return err
	}
	if err = tx.QueryRowContext(ctx, s.q(pendingQuery), p.ParticipantID).Scan(&pending); err != nil {
		return err
	}
	if available := balance - pending; p.Amount > available {
		err = fmt.Errorf("payout %.2f against available %.2f: %w", p.Amount, available, ErrInsufficientFunds)
		return err
	}

	if _, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO payouts (id, participant_id, amount, status, requested_at_ms)
		VALUES (?, ?, ?, ?, ?)`),
		p.ID, p.ParticipantID, p.Amount, string(model.PayoutPending), p.RequestedAt.UnixMilli()); err != nil {
		return err
	}
	return tx.Commit()
}

const payoutColumns = `id, participant_id, amount, status, requested_at_ms, processed_at_ms, transaction_id`

func scanPayout(row interface{ Scan(...any) error }) (model.Payout, error) {
	var (
		p         model.Payout
		status    string
		requested int64
		processed sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.ParticipantID, &p.Amount, &status, &requested, &processed, &p.TransactionID); err != nil {
		return model.Payout{}, err
	}
	p.Status = model.PayoutStatus(status)
	p.RequestedAt = time.UnixMilli(requested).UTC()
	if processed.Valid {
		at := time.UnixMilli(processed.Int64).UTC()
		p.ProcessedAt = &at
	}
	return p, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) payout(ctx context.Context, db queryRower, id string) (model.Payout, error) {
	p, err := scanPayout(db.QueryRowContext(ctx, s.q(`SELECT `+payoutColumns+` FROM payouts WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Payout{}, fmt.Errorf("payout %s: %w", id, ErrNotFound)
	}
	return p, err
}

// Payout implements Ledger.
func (s *SQLStore) Payout(ctx context.Context, id string) (model.Payout, error) {
	defer observeQuery(time.Now())
	return s.payout(ctx, s.db, id)
}

// Payouts implements Ledger.
func (s *SQLStore) Payouts(ctx context.Context, participantID string) ([]model.Payout, error) {
	defer observeQuery(time.Now())
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT `+payoutColumns+` FROM payouts
		WHERE participant_id = ? ORDER BY requested_at_ms, id`), participantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.Payout, 0)
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// closePayout moves a pending payout to status. Zero affected rows means a
// concurrent reviewer got there first.
func (s *SQLStore) closePayout(ctx context.Context, tx *sql.Tx, p *model.Payout, status model.PayoutStatus, at time.Time) error {
	res, err := tx.ExecContext(ctx, s.q(`
		UPDATE payouts SET status = ?, processed_at_ms = ?, transaction_id = ?
		WHERE id = ? AND status = 'pending'`),
		string(status), at.UnixMilli(), p.TransactionID, p.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("payout %s: %w", p.ID, ErrPayoutProcessed)
	}
	at = at.UTC()
	p.Status, p.ProcessedAt = status, &at
	return nil
}

// ApprovePayout implements Ledger. The debit row and the status change
// commit together.
func (s *SQLStore) ApprovePayout(ctx context.Context, id string, debit model.Transaction) (_ model.Payout, err error) {
	defer observeUpdate(time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Payout{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	p, err := s.payout(ctx, tx, id)
	if err != nil {
		return model.Payout{}, err
	}
	if p.Status != model.PayoutPending {
		err = fmt.Errorf("payout %s is %s: %w", id, p.Status, ErrPayoutProcessed)
		return model.Payout{}, err
	}
	if err = s.lockParticipant(ctx, tx, p.ParticipantID); err != nil {
		return model.Payout{}, err
	}
	var balance float64
	if err = tx.QueryRowContext(ctx, s.q(balanceQuery), p.ParticipantID).Scan(&balance); err != nil {
		return model.Payout{}, err
	}
	if p.Amount > balance {
		err = fmt.Errorf("debit %.2f against balance %.2f: %w", p.Amount, balance, ErrInsufficientFunds)
		return model.Payout{}, err
	}

	debit.ParticipantID, debit.Amount, debit.Type = p.ParticipantID, p.Amount, model.Debit
	if _, err = tx.ExecContext(ctx, s.q(insertTransaction), transactionArgs(debit, sql.NullString{})...); err != nil {
		return model.Payout{}, err
	}
	p.TransactionID = debit.ID
	if err = s.closePayout(ctx, tx, &p, model.PayoutCompleted, debit.CreatedAt); err != nil {
		return model.Payout{}, err
	}
	if err = tx.Commit(); err != nil {
		return model.Payout{}, err
	}
	return p, nil
}

// RejectPayout implements Ledger.
func (s *SQLStore) RejectPayout(ctx context.Context, id string, at time.Time) (_ model.Payout, err error) {
	defer observeUpdate(time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Payout{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	p, err := s.payout(ctx, tx, id)
	if err != nil {
		return model.Payout{}, err
	}
	if p.Status != model.PayoutPending {
		err = fmt.Errorf("payout %s is %s: %w", id, p.Status, ErrPayoutProcessed)
		return model.Payout{}, err
	}
	if err = s.closePayout(ctx, tx, &p, model.PayoutRejected, at); err != nil {
		return model.Payout{}, err
	}
	if err = tx.Commit(); err != nil {
		return model.Payout{}, err
	}
	return p, nil
}

// Transactions implements Ledger.
func (s *SQLStore) Transactions(ctx context.Context, participantID string) ([]model.Transaction, error) {
	defer observeQuery(time.Now())
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, participant_id, type, amount, reason, contest_id, kind, prize_rank, prize_tier_id, created_at_ms
		FROM wallet_transactions WHERE participant_id = ? ORDER BY created_at_ms, id`), participantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.Transaction, 0)
	for rows.Next() {
		var (
			t         model.Transaction
			typ, kind string
			created   int64
		)
		if err := rows.Scan(&t.ID, &t.ParticipantID, &typ, &t.Amount, &t.Reason,
			&t.ContestID, &kind, &t.Rank, &t.PrizeTierID, &created); err != nil {
			return nil, err
		}
		t.Type = model.TransactionType(typ)
		t.Kind = model.LeaderboardKind(kind)
		t.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}
