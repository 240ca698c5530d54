package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tabpay/tabpay/internal/config"
	"github.com/tabpay/tabpay/internal/provider/routing/domain"
	routingrepo "github.com/tabpay/tabpay/internal/provider/routing/repository"
	routingservice "github.com/tabpay/tabpay/internal/provider/routing/service"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE tenant_bank_configs (
			id BIGINT PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			config TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_tenant_bank_configs_tenant ON tenant_bank_configs(tenant_id)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newService(t *testing.T, db *gorm.DB, cfg config.Config) domain.Service {
	t.Helper()

	node, err := snowflake.NewNode(11)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return routingservice.New(routingservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  routingrepo.Provide(),
		Cfg:   cfg,
	})
}

func platformConfig(secret string) config.Config {
	return config.Config{
		BankConfigSecret: secret,
		Provider: config.ProviderConfig{
			AccountNumber: "8800123456",
			BankCode:      "970422",
			AccountName:   "TABPAY PLATFORM",
		},
	}
}

func TestResolveRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db, platformConfig("config_secret"))

	node, err := snowflake.NewNode(12)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	tenantID := node.Generate()

	saved := domain.RoutingConfig{
		AccountNumber: "0071000123",
		BankCode:      "970436",
		AccountName:   "QUAN PHO 24",
		APIKey:        "tenant-api-key",
	}
	if err := svc.Save(ctx, tenantID, saved); err != nil {
		t.Fatalf("save config: %v", err)
	}

	resolved, err := svc.Resolve(ctx, tenantID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if *resolved != saved {
		t.Fatalf("resolved config mismatch: got %+v want %+v", *resolved, saved)
	}

	// stored row must not contain the plaintext account number
	var raw string
	if err := db.Raw(`SELECT config FROM tenant_bank_configs WHERE tenant_id = ?`, tenantID).Scan(&raw).Error; err != nil {
		t.Fatalf("read raw config: %v", err)
	}
	if strings.Contains(raw, saved.AccountNumber) || strings.Contains(raw, saved.APIKey) {
		t.Fatalf("stored config leaks plaintext: %s", raw)
	}
}

func TestResolveFallsBackToPlatform(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db, platformConfig("config_secret"))

	node, err := snowflake.NewNode(13)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	resolved, err := svc.Resolve(ctx, node.Generate())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.AccountNumber != "8800123456" || resolved.BankCode != "970422" {
		t.Fatalf("expected platform routing, got %+v", resolved)
	}
}

func TestResolveBadSecretFallsBackToPlatform(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	node, err := snowflake.NewNode(14)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	tenantID := node.Generate()

	writer := newService(t, db, platformConfig("secret_one"))
	if err := writer.Save(ctx, tenantID, domain.RoutingConfig{
		AccountNumber: "0071000123",
		BankCode:      "970436",
	}); err != nil {
		t.Fatalf("save config: %v", err)
	}

	reader := newService(t, db, platformConfig("secret_two"))
	resolved, err := reader.Resolve(ctx, tenantID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.AccountNumber != "8800123456" {
		t.Fatalf("expected platform fallback, got %+v", resolved)
	}
}

func TestSaveRejectsIncompleteConfig(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db, platformConfig("config_secret"))

	node, err := snowflake.NewNode(15)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	err = svc.Save(ctx, node.Generate(), domain.RoutingConfig{AccountNumber: "0071000123"})
	if err != domain.ErrInvalidConfig {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSaveWithoutSecretFails(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db, platformConfig(""))

	node, err := snowflake.NewNode(16)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	err = svc.Save(ctx, node.Generate(), domain.RoutingConfig{
		AccountNumber: "0071000123",
		BankCode:      "970436",
	})
	if err != domain.ErrEncryptionKeyMissing {
		t.Fatalf("expected ErrEncryptionKeyMissing, got %v", err)
	}
}

func TestSaveUpdatesExistingConfig(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db, platformConfig("config_secret"))

	node, err := snowflake.NewNode(17)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	tenantID := node.Generate()

	if err := svc.Save(ctx, tenantID, domain.RoutingConfig{
		AccountNumber: "0071000123",
		BankCode:      "970436",
	}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := svc.Save(ctx, tenantID, domain.RoutingConfig{
		AccountNumber: "9988776655",
		BankCode:      "970415",
	}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	var count int64
	if err := db.Raw(`SELECT COUNT(*) FROM tenant_bank_configs WHERE tenant_id = ?`, tenantID).Scan(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single row per tenant, got %d", count)
	}

	resolved, err := svc.Resolve(ctx, tenantID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.AccountNumber != "9988776655" {
		t.Fatalf("expected updated account, got %+v", resolved)
	}
}
