package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/charmbracelet/log"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/beachball/backend/internal/models"
)

var (
	ErrAccountNotFound = errors.New("admin account not found")
	ErrInvalidToken    = errors.New("invalid token")
	ErrIPNotAllowed    = errors.New("ip not allowed")
)

func logger() *log.Logger { return log.WithPrefix("admin") }

// GetAdminAccount retrieves an admin account by username
func GetAdminAccount(ctx context.Context, db *sqlx.DB, username string) (*models.AdminAccount, error) {
	var acct models.AdminAccount
	err := db.GetContext(ctx, &acct, `SELECT username, display_name, token_hash, roles, allowed_ips, created_at, updated_at FROM admin_accounts WHERE username=$1`, username)
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// VerifyAdminToken checks if the provided token matches the stored hash
func VerifyAdminToken(hashedToken, plainToken string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedToken), []byte(plainToken))
	return err == nil
}

// HashToken returns the bcrypt hash stored for a plain token.
func HashToken(plainToken string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plainToken), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hashed), nil
}

// CreateAdminAccount creates or replaces an admin account (used for seeding)
func CreateAdminAccount(ctx context.Context, db *sqlx.DB, username, displayName, plainToken string, roles, allowedIPs []string) error {
	hashedToken, err := HashToken(plainToken)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO admin_accounts (username, display_name, token_hash, roles, allowed_ips, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (username) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			token_hash = EXCLUDED.token_hash,
			roles = EXCLUDED.roles,
			allowed_ips = EXCLUDED.allowed_ips,
			updated_at = NOW()
	`, username, displayName, hashedToken, pq.Array(roles), pq.Array(allowedIPs))
	return err
}

// ValidateAdmin checks username, token and, when the account restricts it,
// the caller's IP.
func ValidateAdmin(ctx context.Context, db *sqlx.DB, username, token, ip string) (*models.AdminAccount, error) {
	acct, err := GetAdminAccount(ctx, db, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger().Warn("no admin account", "username", username)
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !VerifyAdminToken(acct.TokenHash, token) {
		logger().Warn("token verification failed", "username", username)
		return nil, ErrInvalidToken
	}
	if !ipAllowed(acct.AllowedIPs, ip) {
		logger().Warn("ip rejected", "username", username, "ip", ip)
		return nil, ErrIPNotAllowed
	}
	return acct, nil
}

// ipAllowed accepts any IP when the list is empty. Entries may be single
// addresses or CIDR ranges.
func ipAllowed(allowed []string, ip string) bool {
	if len(allowed) == 0 {
		return true
	}
	addr := net.ParseIP(ip)
	for _, a := range allowed {
		if a == ip {
			return true
		}
		if _, block, err := net.ParseCIDR(a); err == nil && addr != nil && block.Contains(addr) {
			return true
		}
	}
	return false
}

// LogAdminAction records an admin action in the audit log
func LogAdminAction(ctx context.Context, db *sqlx.DB, username, ip, route, action string, details map[string]interface{}, success bool) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		logger().Warn("failed to marshal audit details", "err", err)
		detailsJSON = []byte("{}")
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO admin_audit (admin_username, ip, route, action, details, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, username, ip, route, action, detailsJSON, success)
	if err != nil {
		logger().Error("failed to log admin action", "err", err)
	}
	return err
}

// GetAdminAuditLogs retrieves recent admin audit logs with pagination
func GetAdminAuditLogs(ctx context.Context, db *sqlx.DB, limit, offset int) ([]models.AdminAudit, error) {
	var logs []models.AdminAudit
	err := db.SelectContext(ctx, &logs, `
		SELECT id, admin_username, ip, route, action, details, success, created_at
		FROM admin_audit
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	return logs, err
}
