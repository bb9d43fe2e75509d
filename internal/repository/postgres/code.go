package postgres

import (
	"context"
	"database/sql"
	"time"

	"groupgate/internal/domain"
	"groupgate/internal/repository"
)

type codeRepository struct {
	db *sql.DB
}

func NewCodeRepository(db *sql.DB) repository.CodeRepository {
	return &codeRepository{db: db}
}

// TryRedeem claims the code with a single conditional UPDATE so the
// check-and-set is one atomic statement. The follow-up SELECT only
// classifies a miss and never mutates anything.
func (r *codeRepository) TryRedeem(ctx context.Context, groupID, code, applicantID string) (domain.RedeemResult, error) {
	now := time.Now()
	query := `UPDATE verification_codes SET used = true, redeemed_by = $3, redeemed_at = $4
	          WHERE group_id = $1 AND code = $2 AND used = false
	          AND (expires_on IS NULL OR expires_on > $4)`
	res, err := r.db.ExecContext(ctx, query, groupID, code, applicantID, now)
	if err != nil {
		return domain.RedeemStoreUnavailable, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.RedeemStoreUnavailable, err
	}
	if n > 0 {
		return domain.RedeemRedeemed, nil
	}

	var used bool
	var expiresOn sql.NullTime
	err = r.db.QueryRowContext(ctx,
		`SELECT used, expires_on FROM verification_codes WHERE group_id = $1 AND code = $2`,
		groupID, code).Scan(&used, &expiresOn)
	switch {
	case err == sql.ErrNoRows:
		return domain.RedeemNotFound, nil
	case err != nil:
		return domain.RedeemStoreUnavailable, err
	case used:
		return domain.RedeemAlreadyUsed, nil
	case expiresOn.Valid && !expiresOn.Time.After(now):
		return domain.RedeemExpired, nil
	default:
		// Unused and unexpired yet the UPDATE missed: another caller
		// claimed it between the two statements.
		return domain.RedeemAlreadyUsed, nil
	}
}

func (r *codeRepository) CreateBatch(ctx context.Context, codes []domain.VerificationCode) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO verification_codes (code, group_id, batch_id, used, expires_on, created_on)
	          VALUES ($1, $2, $3, false, $4, $5)`
	for i := range codes {
		c := &codes[i]
		if _, err := tx.ExecContext(ctx, query, c.Code, c.GroupID, c.BatchID, c.ExpiresOn, c.CreatedOn); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *codeRepository) GetByCode(ctx context.Context, groupID, code string) (*domain.VerificationCode, error) {
	c := &domain.VerificationCode{}
	query := `SELECT code, group_id, batch_id, used, redeemed_by, redeemed_at, expires_on, created_on
	          FROM verification_codes WHERE group_id = $1 AND code = $2`
	err := r.db.QueryRowContext(ctx, query, groupID, code).
		Scan(&c.Code, &c.GroupID, &c.BatchID, &c.Used, &c.RedeemedBy, &c.RedeemedAt, &c.ExpiresOn, &c.CreatedOn)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *codeRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM verification_codes WHERE used = false AND expires_on IS NOT NULL AND expires_on <= $1`
	res, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *codeRepository) CountByGroup(ctx context.Context, groupID string) (int64, int64, error) {
	var total, unused int64
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE used = false) FROM verification_codes WHERE group_id = $1`
	if err := r.db.QueryRowContext(ctx, query, groupID).Scan(&total, &unused); err != nil {
		return 0, 0, err
	}
	return total, unused, nil
}
