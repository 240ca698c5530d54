package service

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tabpay/tabpay/internal/config"
	"github.com/tabpay/tabpay/internal/provider/routing/domain"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Cfg   config.Config
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	genID    *snowflake.Node
	encKey   []byte
	platform domain.RoutingConfig
}

type encryptedPayload struct {
	Version    int    `json:"version"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

func New(p Params) domain.Service {
	secret := strings.TrimSpace(p.Cfg.BankConfigSecret)
	var key []byte
	if secret != "" {
		sum := sha256.Sum256([]byte(secret))
		key = sum[:]
	}

	return &Service{
		db:     p.DB,
		log:    p.Log.Named("routing.service"),
		repo:   p.Repo,
		genID:  p.GenID,
		encKey: key,
		platform: domain.RoutingConfig{
			AccountNumber: strings.TrimSpace(p.Cfg.Provider.AccountNumber),
			BankCode:      strings.TrimSpace(p.Cfg.Provider.BankCode),
			AccountName:   strings.TrimSpace(p.Cfg.Provider.AccountName),
		},
	}
}

// Resolve returns the tenant's bank routing, falling back to the platform
// account when the tenant has no active config. A tenant row that fails to
// decrypt is treated as absent so a bad secret cannot block settlement.
func (s *Service) Resolve(ctx context.Context, tenantID snowflake.ID) (*domain.RoutingConfig, error) {
	record, err := s.repo.FindActiveByTenant(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}

	if record != nil {
		cfg, err := s.decryptConfig(record.Config)
		if err != nil {
			s.log.Warn("bank config decrypt failed, using platform routing",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		} else {
			return cfg, nil
		}
	}

	if s.platform.AccountNumber == "" || s.platform.BankCode == "" {
		return nil, domain.ErrInvalidConfig
	}
	platform := s.platform
	return &platform, nil
}

func (s *Service) Save(ctx context.Context, tenantID snowflake.ID, cfg domain.RoutingConfig) error {
	cfg.AccountNumber = strings.TrimSpace(cfg.AccountNumber)
	cfg.BankCode = strings.TrimSpace(cfg.BankCode)
	cfg.AccountName = strings.TrimSpace(cfg.AccountName)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.AccountNumber == "" || cfg.BankCode == "" {
		return domain.ErrInvalidConfig
	}

	encrypted, err := s.encryptConfig(cfg)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return s.repo.Upsert(ctx, s.db, &domain.BankConfigRecord{
		ID:        s.genID.Generate(),
		TenantID:  tenantID,
		Config:    encrypted,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (s *Service) encryptConfig(cfg domain.RoutingConfig) (datatypes.JSON, error) {
	if len(s.encKey) == 0 {
		return nil, domain.ErrEncryptionKeyMissing
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		return nil, domain.ErrInvalidConfig
	}

	block, err := aes.NewCipher(s.encKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nil, nonce, payload, nil)
	encoded := encryptedPayload{
		Version:    1,
		Nonce:      base64.RawStdEncoding.EncodeToString(nonce),
		Ciphertext: base64.RawStdEncoding.EncodeToString(ciphertext),
	}
	out, err := json.Marshal(encoded)
	if err != nil {
		return nil, err
	}

	return datatypes.JSON(out), nil
}

func (s *Service) decryptConfig(encrypted datatypes.JSON) (*domain.RoutingConfig, error) {
	if len(s.encKey) == 0 {
		return nil, domain.ErrEncryptionKeyMissing
	}
	if len(encrypted) == 0 {
		return nil, domain.ErrInvalidConfig
	}

	var payload encryptedPayload
	if err := json.Unmarshal(encrypted, &payload); err != nil {
		return nil, domain.ErrInvalidConfig
	}
	if payload.Version != 1 {
		return nil, domain.ErrInvalidConfig
	}

	nonce, err := base64.RawStdEncoding.DecodeString(payload.Nonce)
	if err != nil {
		return nil, domain.ErrInvalidConfig
	}
	ciphertext, err := base64.RawStdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return nil, domain.ErrInvalidConfig
	}

	block, err := aes.NewCipher(s.encKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, domain.ErrInvalidConfig
	}

	var out domain.RoutingConfig
	if err := json.Unmarshal(plain, &out); err != nil {
		return nil, domain.ErrInvalidConfig
	}
	if out.AccountNumber == "" || out.BankCode == "" {
		return nil, domain.ErrInvalidConfig
	}
	return &out, nil
}
