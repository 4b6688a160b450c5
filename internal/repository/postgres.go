package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Vaultexe/server/internal/domain"
)

// Compile-time interface assertions.
var (
	_ UserRepository       = (*PostgresUserRepo)(nil)
	_ DeviceRepository     = (*PostgresDeviceRepo)(nil)
	_ InvitationRepository = (*PostgresInvitationRepo)(nil)
)

// PostgresUserRepo implements UserRepository on pgx.
type PostgresUserRepo struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{db: pool}
}

const selectUserSQL = `SELECT id, name, email, email_verified, is_active, is_admin, master_pwd_hash, created_at
FROM users`

func (r *PostgresUserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRow(ctx, selectUserSQL+` WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRow(ctx, selectUserSQL+` WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

const insertUserSQL = `INSERT INTO users (id, name, email, email_verified, is_active, is_admin, master_pwd_hash)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, name, email, email_verified, is_active, is_admin, master_pwd_hash, created_at`

func (r *PostgresUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	row := r.db.QueryRow(ctx, insertUserSQL,
		user.ID,
		user.Name,
		user.Email,
		user.EmailVerified,
		user.IsActive,
		user.IsAdmin,
		user.MasterPwdHash,
	)
	inserted, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return inserted, nil
}

const activateUserSQL = `UPDATE users
SET master_pwd_hash = $2, email_verified = TRUE, is_active = TRUE
WHERE id = $1`

func (r *PostgresUserRepo) Activate(ctx context.Context, id, masterPwdHash string) error {
	if _, err := r.db.Exec(ctx, activateUserSQL, id, masterPwdHash); err != nil {
		return fmt.Errorf("activate user: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.EmailVerified,
		&u.IsActive,
		&u.IsAdmin,
		&u.MasterPwdHash,
		&u.CreatedAt,
	)
	return u, err
}

// PostgresDeviceRepo implements DeviceRepository on pgx.
type PostgresDeviceRepo struct {
	db *pgxpool.Pool
}

func NewPostgresDeviceRepo(pool *pgxpool.Pool) *PostgresDeviceRepo {
	return &PostgresDeviceRepo{db: pool}
}

const selectDeviceSQL = `SELECT id, user_id, is_verified, user_agent, last_login_ip, last_login_at, registered_at
FROM devices WHERE id = $1`

func (r *PostgresDeviceRepo) Get(ctx context.Context, id string) (domain.Device, error) {
	var d domain.Device
	err := r.db.QueryRow(ctx, selectDeviceSQL, id).Scan(
		&d.ID,
		&d.UserID,
		&d.IsVerified,
		&d.UserAgent,
		&d.LastLoginIP,
		&d.LastLoginAt,
		&d.RegisteredAt,
	)
	if err != nil {
		return domain.Device{}, fmt.Errorf("get device: %w", err)
	}
	return d, nil
}

func (r *PostgresDeviceRepo) IsVerified(ctx context.Context, id string) (bool, error) {
	var verified bool
	err := r.db.QueryRow(ctx, `SELECT is_verified FROM devices WHERE id = $1`, id).Scan(&verified)
	if err != nil {
		return false, fmt.Errorf("device verified lookup: %w", err)
	}
	return verified, nil
}

const insertDeviceSQL = `INSERT INTO devices (id, user_id, is_verified, user_agent, last_login_ip, last_login_at, registered_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (r *PostgresDeviceRepo) Create(ctx context.Context, device domain.Device) (domain.Device, error) {
	_, err := r.db.Exec(ctx, insertDeviceSQL,
		device.ID,
		device.UserID,
		device.IsVerified,
		device.UserAgent,
		device.LastLoginIP,
		device.LastLoginAt,
		device.RegisteredAt,
	)
	if err != nil {
		return domain.Device{}, fmt.Errorf("create device: %w", err)
	}
	return device, nil
}

func (r *PostgresDeviceRepo) Verify(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE devices SET is_verified = TRUE WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("verify device: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresDeviceRepo) RefreshLogin(ctx context.Context, id, ip string, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE devices SET last_login_ip = $2, last_login_at = $3 WHERE id = $1`, id, ip, at)
	if err != nil {
		return fmt.Errorf("refresh device login: %w", err)
	}
	return nil
}

const deleteRedundantSQL = `DELETE FROM devices
WHERE user_id = $1 AND last_login_ip = $2 AND user_agent = $3 AND is_verified = FALSE AND id <> $4`

func (r *PostgresDeviceRepo) DeleteRedundant(ctx context.Context, userID, ip, userAgent, excludeID string) (int64, error) {
	tag, err := r.db.Exec(ctx, deleteRedundantSQL, userID, ip, userAgent, excludeID)
	if err != nil {
		return 0, fmt.Errorf("delete redundant devices: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PostgresInvitationRepo implements InvitationRepository on pgx.
type PostgresInvitationRepo struct {
	db *pgxpool.Pool
}

func NewPostgresInvitationRepo(pool *pgxpool.Pool) *PostgresInvitationRepo {
	return &PostgresInvitationRepo{db: pool}
}

const selectInvitationSQL = `SELECT token_hash, invitee_id, created_by, created_at, expires_at, is_valid
FROM invitations WHERE token_hash = $1`

func (r *PostgresInvitationRepo) GetByTokenHash(ctx context.Context, tokenHash string) (domain.Invitation, error) {
	var inv domain.Invitation
	err := r.db.QueryRow(ctx, selectInvitationSQL, tokenHash).Scan(
		&inv.TokenHash,
		&inv.InviteeID,
		&inv.CreatedBy,
		&inv.CreatedAt,
		&inv.ExpiresAt,
		&inv.IsValid,
	)
	if err != nil {
		return domain.Invitation{}, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

const insertInvitationSQL = `INSERT INTO invitations (token_hash, invitee_id, created_by, created_at, expires_at, is_valid)
VALUES ($1, $2, $3, $4, $5, $6)`

func (r *PostgresInvitationRepo) Create(ctx context.Context, inv domain.Invitation) error {
	_, err := r.db.Exec(ctx, insertInvitationSQL,
		inv.TokenHash,
		inv.InviteeID,
		inv.CreatedBy,
		inv.CreatedAt,
		inv.ExpiresAt,
		inv.IsValid,
	)
	if err != nil {
		return fmt.Errorf("create invitation: %w", err)
	}
	return nil
}

const invalidateInvitationsSQL = `UPDATE invitations SET is_valid = FALSE
WHERE invitee_id = $1 AND is_valid`

func (r *PostgresInvitationRepo) InvalidateAll(ctx context.Context, inviteeID string) (int64, error) {
	tag, err := r.db.Exec(ctx, invalidateInvitationsSQL, inviteeID)
	if err != nil {
		return 0, fmt.Errorf("invalidate invitations: %w", err)
	}
	return tag.RowsAffected(), nil
}
