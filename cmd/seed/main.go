package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/MrKriegler/go-brokerage/internal/core"
	"github.com/MrKriegler/go-brokerage/internal/platform/config"
	"github.com/MrKriegler/go-brokerage/internal/platform/logging"
	"github.com/MrKriegler/go-brokerage/internal/store"
)

//go:embed seed.yaml
var seedData []byte

type seedFile struct {
	Brokers  []seedBroker  `yaml:"brokers"`
	Products []seedProduct `yaml:"products"`
	Clients  []seedClient  `yaml:"clients"`
}

type seedBroker struct {
	FirstName      string `yaml:"first_name"`
	LastName       string `yaml:"last_name"`
	Email          string `yaml:"email"`
	Phone          string `yaml:"phone"`
	LicenseNumber  string `yaml:"license_number"`
	CommissionRate string `yaml:"commission_rate"`
	HireDate       string `yaml:"hire_date"`
	Role           string `yaml:"role"`
}

type seedField struct {
	Name             string   `yaml:"name"`
	Label            string   `yaml:"label"`
	Type             string   `yaml:"type"`
	Required         bool     `yaml:"required"`
	Options          []string `yaml:"options"`
	Placeholder      string   `yaml:"placeholder"`
	FactorMultiplier string   `yaml:"factor_multiplier"`
	FactorCondition  string   `yaml:"factor_condition"`
}

type seedProduct struct {
	Code         string      `yaml:"code"`
	Name         string      `yaml:"name"`
	Category     string      `yaml:"category"`
	InsurerName  string      `yaml:"insurer_name"`
	Description  string      `yaml:"description"`
	BasePremium  string      `yaml:"base_premium"`
	BaseRate     string      `yaml:"base_rate"`
	CustomFields []seedField `yaml:"custom_fields"`
}

type seedClient struct {
	BrokerEmail string `yaml:"broker_email"`
	FirstName   string `yaml:"first_name"`
	LastName    string `yaml:"last_name"`
	Email       string `yaml:"email"`
	Phone       string `yaml:"phone"`
	Address     string `yaml:"address"`
	DateOfBirth string `yaml:"date_of_birth"`
	Nationality string `yaml:"nationality"`
	CNP         string `yaml:"cnp"`
	IDType      string `yaml:"id_type"`
	IDNumber    string `yaml:"id_number"`
	IDExpiry    string `yaml:"id_expiry"`
	GDPRConsent bool   `yaml:"gdpr_consent"`
}

func main() {
	cfg := config.MustLoad()
	log := logging.New(cfg.Env, cfg.LogLevel)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var data seedFile
	if err := yaml.Unmarshal(seedData, &data); err != nil {
		log.Error("failed to parse seed data", "err", err)
		os.Exit(1)
	}

	backend, err := store.Open(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "err", err)
		os.Exit(1)
	}
	defer backend.Close(context.Background())

	s := seeder{
		repos:    backend.Repos,
		brokers:  core.NewBrokerService(backend.Repos),
		products: core.NewProductService(backend.Repos),
		clients:  core.NewClientService(backend.Repos, core.NewActivityRecorder(backend.Repos.Activity, nil, log)),
		admin:    core.Actor{UserID: 1, Role: core.RoleAdministrator},
		log:      log,
	}

	log.Info("seeding", "db", backend.Name)
	for _, step := range []func(context.Context, seedFile) error{s.seedBrokers, s.seedProducts, s.seedClients} {
		if err := step(ctx, data); err != nil {
			log.Error("seeding failed", "err", err)
			os.Exit(1)
		}
	}
	log.Info("done seeding")
}

type seeder struct {
	repos    core.Repositories
	brokers  core.BrokerService
	products core.ProductService
	clients  core.ClientService
	admin    core.Actor
	log      *slog.Logger
}

func (s seeder) seedBrokers(ctx context.Context, data seedFile) error {
	for _, sb := range data.Brokers {
		rate, err := decimal.NewFromString(sb.CommissionRate)
		if err != nil {
			return fmt.Errorf("broker %s: commission_rate: %w", sb.Email, err)
		}
		b, err := s.brokers.Create(ctx, s.admin, core.Broker{
			FirstName:      sb.FirstName,
			LastName:       sb.LastName,
			Email:          sb.Email,
			Phone:          sb.Phone,
			LicenseNumber:  sb.LicenseNumber,
			CommissionRate: rate,
			HireDate:       sb.HireDate,
			Active:         true,
			Role:           core.Role(sb.Role),
		})
		switch {
		case errors.Is(err, core.ErrConflict):
			s.log.Info("broker exists, skipping", "email", sb.Email)
		case err != nil:
			return fmt.Errorf("broker %s: %w", sb.Email, err)
		default:
			s.log.Info("created broker", "id", b.ID, "email", b.Email)
		}
	}
	return nil
}

func (s seeder) seedProducts(ctx context.Context, data seedFile) error {
	for _, sp := range data.Products {
		p, err := sp.toProduct()
		if err != nil {
			return fmt.Errorf("product %s: %w", sp.Code, err)
		}
		created, err := s.products.Create(ctx, s.admin, p)
		switch {
		case errors.Is(err, core.ErrConflict):
			s.log.Info("product exists, skipping", "code", sp.Code)
		case err != nil:
			return fmt.Errorf("product %s: %w", sp.Code, err)
		default:
			s.log.Info("created product", "id", created.ID, "code", created.Code)
		}
	}
	return nil
}

func (sp seedProduct) toProduct() (core.Product, error) {
	premium, err := decimal.NewFromString(sp.BasePremium)
	if err != nil {
		return core.Product{}, fmt.Errorf("base_premium: %w", err)
	}
	rate, err := decimal.NewFromString(sp.BaseRate)
	if err != nil {
		return core.Product{}, fmt.Errorf("base_rate: %w", err)
	}

	fields := make([]core.CustomFieldDefinition, 0, len(sp.CustomFields))
	for _, sf := range sp.CustomFields {
		f := core.CustomFieldDefinition{
			Name:        sf.Name,
			Label:       sf.Label,
			Type:        core.FieldType(sf.Type),
			Required:    sf.Required,
			Options:     sf.Options,
			Placeholder: sf.Placeholder,
		}
		if sf.FactorMultiplier != "" {
			m, err := decimal.NewFromString(sf.FactorMultiplier)
			if err != nil {
				return core.Product{}, fmt.Errorf("%s.factor_multiplier: %w", sf.Name, err)
			}
			f.FactorMultiplier = &m
		}
		if sf.FactorCondition != "" {
			c, err := core.ParseFactorCondition(sf.FactorCondition)
			if err != nil {
				return core.Product{}, fmt.Errorf("%s.factor_condition: %w", sf.Name, err)
			}
			f.FactorCondition = &c
		}
		fields = append(fields, f)
	}

	return core.Product{
		Code:         sp.Code,
		Name:         sp.Name,
		Category:     core.Category(sp.Category),
		InsurerName:  sp.InsurerName,
		Description:  sp.Description,
		BasePremium:  premium,
		BaseRate:     rate,
		Active:       true,
		CustomFields: fields,
	}, nil
}

// seedClients registers each client as its owning broker. A client whose email
// already shows up in that broker's book is skipped.
func (s seeder) seedClients(ctx context.Context, data seedFile) error {
	for _, sc := range data.Clients {
		owner, err := s.repos.Brokers.GetByEmail(ctx, sc.BrokerEmail)
		if err != nil {
			return fmt.Errorf("client %s: owner %s: %w", sc.Email, sc.BrokerEmail, err)
		}
		existing, err := s.repos.Clients.List(ctx, core.ClientFilter{BrokerID: &owner.ID, Search: sc.Email})
		if err != nil {
			return fmt.Errorf("client %s: %w", sc.Email, err)
		}
		if len(existing) > 0 {
			s.log.Info("client exists, skipping", "email", sc.Email)
			continue
		}

		actor := core.Actor{UserID: owner.ID, Role: owner.Role, BrokerID: &owner.ID}
		c, err := s.clients.Create(ctx, actor, core.ClientInput{
			FirstName:   sc.FirstName,
			LastName:    sc.LastName,
			Email:       sc.Email,
			Phone:       sc.Phone,
			Address:     sc.Address,
			DateOfBirth: sc.DateOfBirth,
			Nationality: sc.Nationality,
			CNP:         sc.CNP,
			IDType:      core.IDType(sc.IDType),
			IDNumber:    sc.IDNumber,
			IDExpiry:    sc.IDExpiry,
			GDPRConsent: sc.GDPRConsent,
		})
		if err != nil {
			return fmt.Errorf("client %s: %w", sc.Email, err)
		}
		s.log.Info("created client", "id", c.ID, "broker_id", owner.ID)
	}
	return nil
}
