package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/vault-access/internal/mfa"
	"github.com/iliyamo/vault-access/internal/model"
	"github.com/iliyamo/vault-access/internal/repository"
	"github.com/iliyamo/vault-access/internal/utils"
)

// SeedUsers is the user directory as the seeder writes it.
type SeedUsers interface {
	Create(ctx context.Context, u model.User) error
	GetByUsername(ctx context.Context, username string) (model.User, error)
}

// SeedItems is the vault item catalogue as the seeder writes it.
type SeedItems interface {
	Create(ctx context.Context, item model.VaultItem) error
	List(ctx context.Context) ([]model.VaultItem, error)
}

// SeedRecords stores vault records.
type SeedRecords interface {
	Create(ctx context.Context, vaultItemID string, p model.RecordPayload) (model.VaultRecord, error)
}

// SeedEnroller issues TOTP secrets for seeded users.
type SeedEnroller interface {
	GenerateSecret(ctx context.Context, userID, accountName string) (mfa.Enrollment, error)
}

// Seeder populates an empty store with development accounts and vault
// content.  Running it twice leaves existing users and items untouched.
type Seeder struct {
	Users      SeedUsers
	Items      SeedItems
	Records    SeedRecords
	MFA        SeedEnroller
	BcryptCost int
	Log        *zap.Logger
}

type seedUser struct {
	username string
	password string
	role     model.Role
}

var seedUsers = []seedUser{
	{"employee1", "employee123", model.RoleEmployee},
	{"employee2", "employee123", model.RoleEmployee},
	{"employee3", "employee123", model.RoleEmployee},
	{"admin1", "admin123", model.RoleAdmin},
	{"admin2", "admin123", model.RoleAdmin},
	{"admin3", "admin123", model.RoleAdmin},
	{"auditor", "auditor123", model.RoleAuditor},
}

type seedItem struct {
	title   string
	records []model.RecordPayload
}

func rec(name, amount, date, instrument, remarks string) model.RecordPayload {
	return model.RecordPayload{
		InvestmentName: name,
		InvestedAmount: decimal.RequireFromString(amount),
		InvestmentDate: date,
		InstrumentType: instrument,
		Remarks:        remarks,
	}
}

var seedItems = []seedItem{
	{"Q4 2024 Venture Capital Portfolio", []model.RecordPayload{
		rec("TechStartup AI Solutions Inc.", "2500000.00", "2024-10-15", "Series A Preferred Stock", "Lead investor, board seat secured"),
		rec("GreenEnergy Innovations Ltd.", "1800000.00", "2024-11-03", "Convertible Note", "Follow-on investment"),
		rec("FinanceFlow SaaS Platform", "1500000.00", "2024-11-18", "SAFE Agreement", "Valuation cap 15M"),
	}},
	{"Private Equity - Manufacturing Sector", []model.RecordPayload{
		rec("Precision Engineering Holdings", "15000000.00", "2024-09-10", "Common Equity", "40% ownership stake"),
		rec("Advanced Materials Corp.", "12500000.00", "2024-10-01", "Mezzanine Debt", "12% annual interest"),
	}},
	{"Real Estate Investment Portfolio", []model.RecordPayload{
		rec("Downtown Commercial Tower", "45000000.00", "2024-08-15", "Direct Property Ownership", "95% occupancy"),
		rec("Industrial Warehouse", "18000000.00", "2024-10-05", "REIT Units", "Logistics hub"),
	}},
}

// Run seeds users and vault items.  Each new user is enrolled in TOTP and
// the enrollment URL is logged so it can be added to an authenticator.
func (s Seeder) Run(ctx context.Context) error {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	for _, su := range seedUsers {
		if err := s.seedUser(ctx, log, su); err != nil {
			return err
		}
	}

	existing, err := s.Items.List(ctx)
	if err != nil {
		return fmt.Errorf("list vault items: %w", err)
	}
	titles := make(map[string]bool, len(existing))
	for _, it := range existing {
		titles[it.Title] = true
	}
	for _, si := range seedItems {
		if titles[si.title] {
			continue
		}
		item := model.VaultItem{ID: uuid.NewString(), Title: si.title, CreatedAt: time.Now().UTC()}
		if err := s.Items.Create(ctx, item); err != nil {
			return fmt.Errorf("create vault item %q: %w", si.title, err)
		}
		for _, p := range si.records {
			if _, err := s.Records.Create(ctx, item.ID, p); err != nil {
				return fmt.Errorf("create record in %q: %w", si.title, err)
			}
		}
		log.Info("seeded vault item", zap.String("id", item.ID), zap.String("title", item.Title), zap.Int("records", len(si.records)))
	}
	return nil
}

func (s Seeder) seedUser(ctx context.Context, log *zap.Logger, su seedUser) error {
	if _, err := s.Users.GetByUsername(ctx, su.username); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("lookup %s: %w", su.username, err)
	}

	hash, err := utils.HashPassword(su.password, s.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u := model.User{
		ID:           uuid.NewString(),
		Username:     su.username,
		PasswordHash: hash,
		Role:         su.role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil
		}
		return fmt.Errorf("create %s: %w", su.username, err)
	}
	fields := []zap.Field{zap.String("username", u.Username), zap.String("role", string(u.Role))}
	if s.MFA != nil {
		enr, err := s.MFA.GenerateSecret(ctx, u.ID, u.Username)
		if err != nil {
			return fmt.Errorf("enroll %s: %w", su.username, err)
		}
		fields = append(fields, zap.String("otpauth_url", enr.URL))
	}
	log.Info("seeded user", fields...)
	return nil
}
