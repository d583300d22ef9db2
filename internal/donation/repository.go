// internal/donation/repository.go
package donation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"foodshare/internal/lifecycle"
)

// Read model queries. The event stream is the source of truth; these
// keep the donations table in step so listings and lookups stay cheap.

func (s *service) insertDonationIntoReadModel(ctx context.Context, tx *sql.Tx, d *lifecycle.Donation) error {
	query := `
		INSERT INTO donations (id, donor_id, title, description, category, quantity, unit, location,
			status, prior_status, expires_at, created_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := tx.ExecContext(ctx, query,
		d.ID, d.DonorID, d.Title, d.Description, d.Category, d.Quantity, d.Unit, d.Location,
		d.Status, d.PriorStatus, d.ExpiresAt, d.CreatedAt, d.Version)
	return err
}

func (s *service) updateDonationInReadModel(ctx context.Context, tx *sql.Tx, d *lifecycle.Donation) error {
	query := `
		UPDATE donations
		SET recipient_id = $1, ngo_id = $2, status = $3, prior_status = $4,
			accepted_at = $5, rejected_at = $6, ready_at = $7, in_transit_at = $8,
			delivered_at = $9, completed_at = $10, cancelled_at = $11, flagged_at = $12,
			version = $13
		WHERE id = $14
	`
	_, err := tx.ExecContext(ctx, query,
		nullUUID(d.RecipientID), nullUUID(d.NGOID), d.Status, d.PriorStatus,
		nullTime(d.AcceptedAt), nullTime(d.RejectedAt), nullTime(d.ReadyAt), nullTime(d.InTransitAt),
		nullTime(d.DeliveredAt), nullTime(d.CompletedAt), nullTime(d.CancelledAt), nullTime(d.FlaggedAt),
		d.Version, d.ID)
	return err
}

func (s *service) insertFlag(ctx context.Context, tx *sql.Tx, donationID uuid.UUID, f lifecycle.Flag) error {
	query := `
		INSERT INTO donation_flags (donation_id, reason, reporter_id, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := tx.ExecContext(ctx, query, donationID, f.Reason, f.ReporterID, f.CreatedAt)
	return err
}

func (s *service) getDonationFromReadModel(ctx context.Context, id uuid.UUID) (*lifecycle.Donation, error) {
	query := `
		SELECT id, donor_id, recipient_id, ngo_id, title, description, category, quantity, unit, location,
			status, prior_status, expires_at, created_at,
			accepted_at, rejected_at, ready_at, in_transit_at, delivered_at, completed_at, cancelled_at, flagged_at,
			version
		FROM donations
		WHERE id = $1
	`
	d, err := scanDonation(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("donation with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get donation from read model: %w", err)
	}

	flags, err := s.getFlags(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Flags = flags
	return d, nil
}

func (s *service) getFlags(ctx context.Context, donationID uuid.UUID) ([]lifecycle.Flag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT reason, reporter_id, created_at
		FROM donation_flags
		WHERE donation_id = $1
		ORDER BY id`, donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query donation flags: %w", err)
	}
	defer rows.Close()

	var flags []lifecycle.Flag
	for rows.Next() {
		var f lifecycle.Flag
		if err := rows.Scan(&f.Reason, &f.ReporterID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan donation flag: %w", err)
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

func (s *service) listDonationsFromReadModel(ctx context.Context, filter ListFilter) ([]*lifecycle.Donation, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, donor_id, recipient_id, ngo_id, title, description, category, quantity, unit, location,
			status, prior_status, expires_at, created_at,
			accepted_at, rejected_at, ready_at, in_transit_at, delivered_at, completed_at, cancelled_at, flagged_at,
			version
		FROM donations
		WHERE 1=1`)

	params := []interface{}{}
	add := func(clause string, value interface{}) {
		params = append(params, value)
		sb.WriteString(fmt.Sprintf(clause, len(params)))
	}

	if filter.Status != "" {
		add(" AND status = $%d", filter.Status)
	}
	if filter.Category != "" {
		add(" AND category = $%d", filter.Category)
	}
	if filter.DonorID != uuid.Nil {
		add(" AND donor_id = $%d", filter.DonorID)
	}
	if filter.UserID != uuid.Nil {
		add(" AND (donor_id = $%d", filter.UserID)
		sb.WriteString(fmt.Sprintf(" OR recipient_id = $%d OR ngo_id = $%d)", len(params), len(params)))
	}
	if !filter.Cursor.IsZero() {
		add(" AND created_at < $%d", filter.Cursor)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	params = append(params, limit)
	sb.WriteString(fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(params)))

	rows, err := s.db.QueryContext(ctx, sb.String(), params...)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	defer rows.Close()

	var donations []*lifecycle.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

// listDeliveredBefore returns delivered donations whose delivery is
// older than the cutoff, for the auto-completion sweep.
func (s *service) listDeliveredBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM donations
		WHERE status = $1 AND delivered_at < $2
		ORDER BY delivered_at`,
		lifecycle.StatusDelivered, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivered donations: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan donation id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDonation(row rowScanner) (*lifecycle.Donation, error) {
	d := &lifecycle.Donation{}
	var recipientID, ngoID uuid.NullUUID
	var acceptedAt, rejectedAt, readyAt, inTransitAt, deliveredAt, completedAt, cancelledAt, flaggedAt sql.NullTime

	err := row.Scan(
		&d.ID, &d.DonorID, &recipientID, &ngoID, &d.Title, &d.Description, &d.Category, &d.Quantity, &d.Unit, &d.Location,
		&d.Status, &d.PriorStatus, &d.ExpiresAt, &d.CreatedAt,
		&acceptedAt, &rejectedAt, &readyAt, &inTransitAt, &deliveredAt, &completedAt, &cancelledAt, &flaggedAt,
		&d.Version,
	)
	if err != nil {
		return nil, err
	}

	d.RecipientID = recipientID.UUID
	d.NGOID = ngoID.UUID
	d.AcceptedAt = acceptedAt.Time
	d.RejectedAt = rejectedAt.Time
	d.ReadyAt = readyAt.Time
	d.InTransitAt = inTransitAt.Time
	d.DeliveredAt = deliveredAt.Time
	d.CompletedAt = completedAt.Time
	d.CancelledAt = cancelledAt.Time
	d.FlaggedAt = flaggedAt.Time
	return d, nil
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
