// Package seed loads the demonstration data set: two owners, three tenants,
// listings around Conakry, three contracts and their payment history.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "password123"

// Summary reports what a seed run inserted.
type Summary struct {
	Users      int  `json:"users"`
	Properties int  `json:"properties"`
	Contracts  int  `json:"contracts"`
	Payments   int  `json:"payments"`
	Skipped    bool `json:"skipped"`
}

type Seeder struct {
	users     domain.UserRepository
	props     domain.PropertyRepository
	contracts domain.ContractRepository
	payments  domain.PaymentRepository
	tx        domain.Transactor
	logger    *slog.Logger
	cost      int
}

func NewSeeder(
	users domain.UserRepository,
	props domain.PropertyRepository,
	contracts domain.ContractRepository,
	payments domain.PaymentRepository,
	tx domain.Transactor,
	logger *slog.Logger,
) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		users:     users,
		props:     props,
		contracts: contracts,
		payments:  payments,
		tx:        tx,
		logger:    logger,
		cost:      bcrypt.DefaultCost,
	}
}

type userRow struct {
	key, email, name, phone string
	role                    domain.Role
}

type propertyRow struct {
	key, owner, title, description, location string
	price                                    int64
	typ                                      domain.PropertyType
	beds, baths, sqft                        int
	image                                    string
	status                                   domain.PropertyStatus
}

type contractRow struct {
	key, property, tenant, start, end string
	rent, deposit                     int64
	status                            domain.ContractStatus
}

type paymentRow struct {
	contract, date string
	amount         int64
	method         domain.PaymentMethod
	status         domain.PaymentStatus
	transactionID  string
}

var users = []userRow{
	{"owner1", "mamadou@kushtati.com", "Mamadou Diallo", "+224 621 00 00 01", domain.RoleOwner},
	{"owner2", "fatoumata@kushtati.com", "Fatoumata Camara", "+224 621 00 00 02", domain.RoleOwner},
	{"tenant1", "ibrahima@gmail.com", "Ibrahima Baldé", "+224 621 00 00 03", domain.RoleTenant},
	{"tenant2", "aissatou@gmail.com", "Aissatou Sylla", "+224 621 00 00 04", domain.RoleTenant},
	{"tenant3", "abdoul@gmail.com", "Abdoul Sow", "+224 621 00 00 05", domain.RoleTenant},
}

var properties = []propertyRow{
	{"prop1", "owner1", "Villa Moderne à Kaloum", "Superbe villa moderne avec vue panoramique sur la mer, 4 chambres spacieuses, salon double, cuisine équipée, jardin paysager.", "Kaloum, Conakry", 15000000, domain.PropertyTypeSale, 4, 3, 2500, "https://images.unsplash.com/photo-1613490493576-7fde63acd811?w=800&h=600&fit=crop", domain.PropertyStatusAvailable},
	{"prop2", "owner1", "Appartement F3 Matam", "Bel appartement de 3 pièces au 2ème étage, bien aéré avec balcon. Parking disponible.", "Matam, Conakry", 2500000, domain.PropertyTypeRent, 3, 2, 1200, "https://images.unsplash.com/photo-1522708323590-d24dbb6b0267?w=800&h=600&fit=crop", domain.PropertyStatusRented},
	{"prop3", "owner1", "Studio Meublé Taouyah", "Studio tout équipé avec cuisine américaine, climatisation, idéal pour célibataire ou couple.", "Taouyah, Conakry", 1500000, domain.PropertyTypeRent, 1, 1, 500, "https://images.unsplash.com/photo-1502672260066-6bc35f0a1934?w=800&h=600&fit=crop", domain.PropertyStatusAvailable},
	{"prop4", "owner2", "Duplex Ratoma", "Superbe duplex de 5 chambres avec terrasse, vue mer. Construction récente.", "Ratoma, Conakry", 25000000, domain.PropertyTypeSale, 5, 4, 3500, "https://images.unsplash.com/photo-1600596542815-ffad4c1539a9?w=800&h=600&fit=crop", domain.PropertyStatusAvailable},
	{"prop5", "owner2", "Appartement F4 Dixinn", "Grand appartement familial de 4 chambres, salon spacieux, cuisine moderne.", "Dixinn, Conakry", 3000000, domain.PropertyTypeRent, 4, 2, 1800, "https://images.unsplash.com/photo-1560448204-e02f11c3d0e2?w=800&h=600&fit=crop", domain.PropertyStatusRented},
	{"prop6", "owner2", "Maison de Campagne Kindia", "Belle maison à Kindia avec grand terrain, parfaite pour retraite au calme.", "Kindia", 8000000, domain.PropertyTypeSale, 3, 2, 2000, "https://images.unsplash.com/photo-1564013799919-ab600027ffc6?w=800&h=600&fit=crop", domain.PropertyStatusAvailable},
	{"prop7", "owner1", "Local Commercial Madina", "Espace commercial de 100m² idéal pour boutique, bien situé sur axe passant.", "Madina, Conakry", 2000000, domain.PropertyTypeRent, 0, 1, 1000, "https://images.unsplash.com/photo-1497366216548-37526070297c?w=800&h=600&fit=crop", domain.PropertyStatusAvailable},
	{"prop8", "owner2", "Villa de Luxe Kipé", "Villa haut standing avec piscine, jardin paysager, sécurité 24h/24.", "Kipé, Conakry", 45000000, domain.PropertyTypeSale, 6, 5, 5000, "https://images.unsplash.com/photo-1605276374104-dee2a0ed3cd6?w=800&h=600&fit=crop", domain.PropertyStatusAvailable},
}

var contracts = []contractRow{
	{"contract1", "prop2", "tenant1", "2024-01-01", "2025-12-31", 2500000, 5000000, domain.ContractStatusActive},
	{"contract2", "prop5", "tenant2", "2024-03-01", "2025-02-28", 3000000, 6000000, domain.ContractStatusActive},
	{"contract3", "prop3", "tenant3", "2023-06-01", "2024-05-31", 1500000, 3000000, domain.ContractStatusExpired},
}

var payments = []paymentRow{
	{"contract1", "2024-01-05", 2500000, domain.PaymentMethodOrangeMoney, domain.PaymentStatusPaid, "OM20240105001"},
	{"contract1", "2024-02-05", 2500000, domain.PaymentMethodOrangeMoney, domain.PaymentStatusPaid, "OM20240205001"},
	{"contract1", "2024-03-05", 2500000, domain.PaymentMethodWave, domain.PaymentStatusPaid, "WV20240305001"},
	{"contract1", "2024-04-05", 2500000, domain.PaymentMethodOrangeMoney, domain.PaymentStatusPending, ""},
	{"contract2", "2024-03-01", 3000000, domain.PaymentMethodMTNMoney, domain.PaymentStatusPaid, "MTN20240301001"},
	{"contract2", "2024-04-01", 3000000, domain.PaymentMethodMTNMoney, domain.PaymentStatusLate, ""},
	{"contract3", "2023-06-05", 1500000, domain.PaymentMethodCash, domain.PaymentStatusPaid, "CASH20230605001"},
	{"contract3", "2023-07-05", 1500000, domain.PaymentMethodCash, domain.PaymentStatusPaid, "CASH20230705001"},
}

// Run inserts the data set in one transaction. When the first owner
// already exists the run is skipped.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	if _, err := s.users.GetByEmail(ctx, users[0].email); err == nil {
		s.logger.Info("seed data already present, skipping")
		return &Summary{Skipped: true}, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check existing seed: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	summary := &Summary{}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ids := map[string]string{}
		owners := map[string]string{}

		for _, u := range users {
			phone := u.phone
			user := &domain.User{Email: u.email, PasswordHash: string(hash), Name: u.name, Phone: &phone, Role: u.role}
			if err := s.users.Create(ctx, user); err != nil {
				return fmt.Errorf("seed user %s: %w", u.email, err)
			}
			ids[u.key] = user.ID
			summary.Users++
		}

		for _, p := range properties {
			desc, image := p.description, p.image
			prop := &domain.Property{
				OwnerID:     ids[p.owner],
				Title:       p.title,
				Description: &desc,
				Location:    p.location,
				Price:       decimal.NewFromInt(p.price),
				Type:        p.typ,
				Beds:        p.beds,
				Baths:       p.baths,
				Sqft:        p.sqft,
				ImageURL:    &image,
				Status:      p.status,
			}
			if err := s.props.Create(ctx, prop); err != nil {
				return fmt.Errorf("seed property %s: %w", p.title, err)
			}
			ids[p.key] = prop.ID
			owners[p.key] = prop.OwnerID
			summary.Properties++
		}

		for _, c := range contracts {
			start, err := domain.ParseDate(c.start)
			if err != nil {
				return err
			}
			end, err := domain.ParseDate(c.end)
			if err != nil {
				return err
			}
			contract := &domain.Contract{
				PropertyID:  ids[c.property],
				TenantID:    ids[c.tenant],
				OwnerID:     owners[c.property],
				StartDate:   start,
				EndDate:     end,
				MonthlyRent: decimal.NewFromInt(c.rent),
				Deposit:     decimal.NewFromInt(c.deposit),
				Status:      c.status,
			}
			if err := s.contracts.Create(ctx, contract); err != nil {
				return fmt.Errorf("seed %s: %w", c.key, err)
			}
			ids[c.key] = contract.ID
			ids[c.key+".tenant"] = contract.TenantID
			summary.Contracts++
		}

		for _, p := range payments {
			paid, err := domain.ParseDate(p.date)
			if err != nil {
				return err
			}
			payment := &domain.Payment{
				ContractID:    ids[p.contract],
				TenantID:      ids[p.contract+".tenant"],
				Amount:        decimal.NewFromInt(p.amount),
				PaymentDate:   paid,
				PaymentMethod: p.method,
				Status:        p.status,
			}
			if p.transactionID != "" {
				tid := p.transactionID
				payment.TransactionID = &tid
			}
			if err := s.payments.Create(ctx, payment); err != nil {
				return fmt.Errorf("seed payment %s/%s: %w", p.contract, p.date, err)
			}
			summary.Payments++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("seed data loaded",
		slog.Int("users", summary.Users),
		slog.Int("properties", summary.Properties),
		slog.Int("contracts", summary.Contracts),
		slog.Int("payments", summary.Payments),
	)
	return summary, nil
}
