package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/beachball/backend/internal/admin"
	"github.com/beachball/backend/internal/config"
	"github.com/beachball/backend/internal/database"
)

func main() {
	username := flag.String("username", envOr("ADMIN_USERNAME", "admin"), "admin username")
	displayName := flag.String("name", "Admin", "display name")
	allowed := flag.String("allowed-ips", os.Getenv("ADMIN_ALLOWED_IPS"), "comma separated IPs or CIDRs; empty allows any")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", "err", err)
	}
	defer db.Close()

	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		adminToken = "change-me-in-production"
		log.Warn("using default admin token; set ADMIN_TOKEN in production")
	}

	var allowedIPs []string
	for _, ip := range strings.Split(*allowed, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			allowedIPs = append(allowedIPs, ip)
		}
	}
	roles := []string{"super_admin"}

	if err := admin.CreateAdminAccount(ctx, db, *username, *displayName, adminToken, roles, allowedIPs); err != nil {
		log.Fatal("failed to create admin account", "err", err)
	}

	log.Info("admin account created or updated",
		"username", *username,
		"display_name", *displayName,
		"roles", roles,
		"allowed_ips", allowedIPs,
	)
	log.Info("send the X-Admin-User and X-Admin-Token headers to /api/v1/admin")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
