package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines admin data access
type Repository interface {
	// Admin users
	CreateAdmin(ctx context.Context, admin *AdminUser) error
	GetAdminByID(ctx context.Context, id uuid.UUID) (*AdminUser, error)
	GetAdminByEmail(ctx context.Context, email string) (*AdminUser, error)
	ListAdmins(ctx context.Context) ([]*AdminUser, error)
	UpdateAdmin(ctx context.Context, admin *AdminUser) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, ip string) error

	// Audit logs
	CreateAuditLog(ctx context.Context, entry *AuditLog) error
	ListAuditLogs(ctx context.Context, filter AuditFilter) ([]*AuditLog, int, error)

	// Settings
	GetSetting(ctx context.Context, key string) (*SettingRow, error)
	UpsertSetting(ctx context.Context, key string, value json.RawMessage, version int, adminID uuid.UUID) error

	// Blacklist
	AddBlacklist(ctx context.Context, entry *BlacklistEntry) error
	RemoveBlacklist(ctx context.Context, kind, value string) error
	ListBlacklist(ctx context.Context) ([]*BlacklistEntry, error)
}

// AuditFilter for filtering audit logs
type AuditFilter struct {
	AdminID    *uuid.UUID
	Action     *string
	EntityType *string
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates admin repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Admin users

func (r *repository) CreateAdmin(ctx context.Context, admin *AdminUser) error {
	query := `
		INSERT INTO admin_users (id, email, password_hash, role, name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		admin.ID,
		admin.Email,
		admin.PasswordHash,
		admin.Role,
		admin.Name,
		admin.IsActive,
		admin.CreatedAt,
		admin.UpdatedAt,
	)
	return err
}

func (r *repository) GetAdminByID(ctx context.Context, id uuid.UUID) (*AdminUser, error) {
	var admin AdminUser
	err := r.db.GetContext(ctx, &admin, `SELECT * FROM admin_users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}

func (r *repository) GetAdminByEmail(ctx context.Context, email string) (*AdminUser, error) {
	var admin AdminUser
	err := r.db.GetContext(ctx, &admin, `SELECT * FROM admin_users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}

func (r *repository) ListAdmins(ctx context.Context) ([]*AdminUser, error) {
	var admins []*AdminUser
	err := r.db.SelectContext(ctx, &admins, `SELECT * FROM admin_users ORDER BY created_at DESC`)
	return admins, err
}

func (r *repository) UpdateAdmin(ctx context.Context, admin *AdminUser) error {
	query := `
		UPDATE admin_users SET
			name = $2, role = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query,
		admin.ID,
		admin.Name,
		admin.Role,
		admin.IsActive,
	)
	return err
}

func (r *repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, ip string) error {
	query := `UPDATE admin_users SET last_login_at = NOW(), last_login_ip = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, ip)
	return err
}

// Audit logs

func (r *repository) CreateAuditLog(ctx context.Context, entry *AuditLog) error {
	query := `
		INSERT INTO admin_audit_logs (id, admin_id, admin_email, action, entity_type, entity_id, old_value, new_value, reason, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.AdminID,
		entry.AdminEmail,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.OldValue,
		entry.NewValue,
		entry.Reason,
		entry.IPAddress,
		entry.CreatedAt,
	)
	return err
}

func (r *repository) ListAuditLogs(ctx context.Context, filter AuditFilter) ([]*AuditLog, int, error) {
	var conditions []string
	var args []interface{}

	addCondition := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.AdminID != nil {
		addCondition("admin_id = $%d", *filter.AdminID)
	}
	if filter.Action != nil {
		addCondition("action = $%d", *filter.Action)
	}
	if filter.EntityType != nil {
		addCondition("entity_type = $%d", *filter.EntityType)
	}
	if filter.FromDate != nil {
		addCondition("created_at >= $%d", *filter.FromDate)
	}
	if filter.ToDate != nil {
		addCondition("created_at <= $%d", *filter.ToDate)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM admin_audit_logs`+where, args...); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	query := fmt.Sprintf(`SELECT * FROM admin_audit_logs%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	var logs []*AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// Settings

func (r *repository) GetSetting(ctx context.Context, key string) (*SettingRow, error) {
	var row SettingRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM admin_settings WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSettingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpsertSetting(ctx context.Context, key string, value json.RawMessage, version int, adminID uuid.UUID) error {
	query := `
		INSERT INTO admin_settings (key, value, version, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, version = EXCLUDED.version,
		    updated_by = EXCLUDED.updated_by, updated_at = NOW()
	`
	updatedBy := uuid.NullUUID{UUID: adminID, Valid: adminID != uuid.Nil}
	_, err := r.db.ExecContext(ctx, query, key, value, version, updatedBy)
	return err
}

// Blacklist

func (r *repository) AddBlacklist(ctx context.Context, entry *BlacklistEntry) error {
	query := `
		INSERT INTO blacklist (id, kind, value, reason, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (kind, value) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Kind,
		entry.Value,
		entry.Reason,
		entry.CreatedBy,
		entry.CreatedAt,
	)
	return err
}

func (r *repository) RemoveBlacklist(ctx context.Context, kind, value string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blacklist WHERE kind = $1 AND value = $2`, kind, value)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotBlacklisted
	}
	return nil
}

func (r *repository) ListBlacklist(ctx context.Context) ([]*BlacklistEntry, error) {
	var entries []*BlacklistEntry
	err := r.db.SelectContext(ctx, &entries, `SELECT * FROM blacklist ORDER BY created_at DESC`)
	return entries, err
}
