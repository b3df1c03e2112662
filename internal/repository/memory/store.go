// Package memory keeps every entity in process memory. It backs the server
// when STORAGE_DRIVER=memory and the service and handler tests.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
)

// Store holds users, properties, contracts and payments. Foreign keys and
// the unique email are checked the way the Postgres schema checks them.
type Store struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	props     map[string]domain.Property
	contracts map[string]domain.Contract
	payments  map[string]domain.Payment

	// txMu serializes transactions.
	txMu sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:     map[string]domain.User{},
		props:     map[string]domain.Property{},
		contracts: map[string]domain.Contract{},
		payments:  map[string]domain.Payment{},
		now:       time.Now,
	}
}

func (s *Store) Users() *UserRepository         { return &UserRepository{s} }
func (s *Store) Properties() *PropertyRepository { return &PropertyRepository{s} }
func (s *Store) Contracts() *ContractRepository  { return &ContractRepository{s} }
func (s *Store) Payments() *PaymentRepository    { return &PaymentRepository{s} }

// stamp returns a timestamp strictly after the previous one so that
// newest-first ordering is total. Callers hold mu.
func (s *Store) stamp() time.Time {
	t := s.now().UTC().Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

type txKey struct{}

type snapshot struct {
	users     map[string]domain.User
	props     map[string]domain.Property
	contracts map[string]domain.Contract
	payments  map[string]domain.Payment
}

// WithinTx runs fn and restores the previous state when it fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snap := snapshot{
		users:     maps.Clone(s.users),
		props:     maps.Clone(s.props),
		contracts: maps.Clone(s.contracts),
		payments:  maps.Clone(s.payments),
	}
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.users, s.props, s.contracts, s.payments = snap.users, snap.props, snap.contracts, snap.payments
		s.mu.Unlock()
		return err
	}
	return nil
}

// Ping always succeeds; it lets the store stand in for a database in
// readiness checks.
func (s *Store) Ping(context.Context) error { return nil }

// UserRepository implements domain.UserRepository
type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("create user: %w: users_email_key", domain.ErrDuplicate)
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = r.s.stamp()
	u.UpdatedAt = u.CreatedAt
	r.s.users[u.ID] = *u
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", domain.ErrNotFound)
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("get user by email: %w", domain.ErrNotFound)
}

func (r *UserRepository) Update(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.users[u.ID]
	if !ok {
		return fmt.Errorf("update user: %w", domain.ErrNotFound)
	}
	for id, other := range r.s.users {
		if id != u.ID && strings.EqualFold(other.Email, u.Email) {
			return fmt.Errorf("update user: %w: users_email_key", domain.ErrDuplicate)
		}
	}
	current.Email = u.Email
	current.Name = u.Name
	current.Phone = u.Phone
	current.PasswordHash = u.PasswordHash
	current.UpdatedAt = r.s.stamp()
	r.s.users[u.ID] = current
	u.UpdatedAt = current.UpdatedAt
	return nil
}

func (r *UserRepository) List(_ context.Context) ([]*domain.User, error) {
	return r.filter(func(domain.User) bool { return true }), nil
}

func (r *UserRepository) ListByRole(_ context.Context, role domain.Role) ([]*domain.User, error) {
	return r.filter(func(u domain.User) bool { return u.Role == role }), nil
}

func (r *UserRepository) filter(keep func(domain.User) bool) []*domain.User {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*domain.User{}
	for _, u := range r.s.users {
		if keep(u) {
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *UserRepository) DeleteCascade(_ context.Context, id string) (*domain.CascadeSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return nil, fmt.Errorf("delete user: %w", domain.ErrNotFound)
	}

	summary := &domain.CascadeSummary{}
	ownedProps := map[string]bool{}
	for pid, p := range r.s.props {
		if p.OwnerID == id {
			ownedProps[pid] = true
		}
	}
	doomed := map[string]bool{}
	for cid, c := range r.s.contracts {
		if c.OwnerID == id || c.TenantID == id || ownedProps[c.PropertyID] {
			doomed[cid] = true
		}
	}
	for pid, p := range r.s.payments {
		if p.TenantID == id || doomed[p.ContractID] {
			delete(r.s.payments, pid)
			summary.Payments++
		}
	}
	for cid := range doomed {
		delete(r.s.contracts, cid)
		summary.Contracts++
	}
	for pid := range ownedProps {
		delete(r.s.props, pid)
		summary.Properties++
	}
	delete(r.s.users, id)
	summary.Users = 1
	return summary, nil
}

// PropertyRepository implements domain.PropertyRepository
type PropertyRepository struct{ s *Store }

func (r *PropertyRepository) withOwner(p domain.Property) *domain.Property {
	if owner, ok := r.s.users[p.OwnerID]; ok {
		p.Owner = &domain.OwnerSummary{Name: owner.Name, Email: owner.Email, Phone: owner.Phone}
	}
	return &p
}

func (r *PropertyRepository) Create(_ context.Context, p *domain.Property) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[p.OwnerID]; !ok {
		return fmt.Errorf("create property: %w: properties_owner_id_fkey", domain.ErrForeignKey)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = domain.PropertyStatusAvailable
	}
	p.CreatedAt = r.s.stamp()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	stored.Owner = nil
	r.s.props[p.ID] = stored
	return nil
}

func (r *PropertyRepository) GetByID(_ context.Context, id string) (*domain.Property, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.props[id]
	if !ok {
		return nil, fmt.Errorf("get property: %w", domain.ErrNotFound)
	}
	return r.withOwner(p), nil
}

func (r *PropertyRepository) List(_ context.Context, f domain.PropertyFilter) ([]*domain.Property, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	loc := strings.ToLower(strings.TrimSpace(f.Location))
	out := []*domain.Property{}
	for _, p := range r.s.props {
		switch {
		case f.Type != nil && p.Type != *f.Type:
			continue
		case f.Status != nil && p.Status != *f.Status:
			continue
		case f.MinPrice != nil && p.Price.LessThan(*f.MinPrice):
			continue
		case f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice):
			continue
		case loc != "" && !strings.Contains(strings.ToLower(p.Location), loc):
			continue
		}
		out = append(out, r.withOwner(p))
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *PropertyRepository) ListByOwner(_ context.Context, ownerID string) ([]*domain.Property, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*domain.Property{}
	for _, p := range r.s.props {
		if p.OwnerID == ownerID {
			out = append(out, r.withOwner(p))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(ps []*domain.Property) {
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].CreatedAt.After(ps[j].CreatedAt) })
}

func (r *PropertyRepository) Update(_ context.Context, p *domain.Property) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.props[p.ID]
	if !ok {
		return fmt.Errorf("update property: %w", domain.ErrNotFound)
	}
	stored := *p
	stored.OwnerID = current.OwnerID
	stored.CreatedAt = current.CreatedAt
	stored.UpdatedAt = r.s.stamp()
	stored.Owner = nil
	r.s.props[p.ID] = stored
	p.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *PropertyRepository) DeleteCascade(_ context.Context, id string) (*domain.CascadeSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.props[id]; !ok {
		return nil, fmt.Errorf("delete property: %w", domain.ErrNotFound)
	}
	summary := &domain.CascadeSummary{Properties: 1}
	for cid, c := range r.s.contracts {
		if c.PropertyID != id {
			continue
		}
		summary.Payments += r.s.deletePaymentsOf(cid)
		delete(r.s.contracts, cid)
		summary.Contracts++
	}
	delete(r.s.props, id)
	return summary, nil
}

// deletePaymentsOf must be called with mu held.
func (s *Store) deletePaymentsOf(contractID string) int64 {
	var n int64
	for pid, p := range s.payments {
		if p.ContractID == contractID {
			delete(s.payments, pid)
			n++
		}
	}
	return n
}

// ContractRepository implements domain.ContractRepository
type ContractRepository struct{ s *Store }

func (r *ContractRepository) Create(_ context.Context, c *domain.Contract) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.props[c.PropertyID]; !ok {
		return fmt.Errorf("create contract: %w: contracts_property_id_fkey", domain.ErrForeignKey)
	}
	if _, ok := r.s.users[c.TenantID]; !ok {
		return fmt.Errorf("create contract: %w: contracts_tenant_id_fkey", domain.ErrForeignKey)
	}
	if _, ok := r.s.users[c.OwnerID]; !ok {
		return fmt.Errorf("create contract: %w: contracts_owner_id_fkey", domain.ErrForeignKey)
	}
	if !c.StartDate.Before(c.EndDate) {
		return fmt.Errorf("create contract: %w: contracts_check", domain.ErrConstraint)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = domain.ContractStatusActive
	}
	c.CreatedAt = r.s.stamp()
	c.UpdatedAt = c.CreatedAt
	r.s.contracts[c.ID] = *c
	return nil
}

func (r *ContractRepository) GetByID(_ context.Context, id string) (*domain.Contract, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.contracts[id]
	if !ok {
		return nil, fmt.Errorf("get contract: %w", domain.ErrNotFound)
	}
	return &c, nil
}

func (r *ContractRepository) ListByTenant(_ context.Context, tenantID string) ([]*domain.Contract, error) {
	return r.filter(func(c domain.Contract) bool { return c.TenantID == tenantID }), nil
}

func (r *ContractRepository) ListByOwner(_ context.Context, ownerID string) ([]*domain.Contract, error) {
	return r.filter(func(c domain.Contract) bool { return c.OwnerID == ownerID }), nil
}

func (r *ContractRepository) filter(keep func(domain.Contract) bool) []*domain.Contract {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*domain.Contract{}
	for _, c := range r.s.contracts {
		if keep(c) {
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *ContractRepository) Update(_ context.Context, c *domain.Contract) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.contracts[c.ID]
	if !ok {
		return fmt.Errorf("update contract: %w", domain.ErrNotFound)
	}
	if !c.StartDate.Before(c.EndDate) {
		return fmt.Errorf("update contract: %w: contracts_check", domain.ErrConstraint)
	}
	current.StartDate = c.StartDate
	current.EndDate = c.EndDate
	current.MonthlyRent = c.MonthlyRent
	current.Deposit = c.Deposit
	current.Status = c.Status
	current.UpdatedAt = r.s.stamp()
	r.s.contracts[c.ID] = current
	c.UpdatedAt = current.UpdatedAt
	return nil
}

func (r *ContractRepository) Delete(_ context.Context, id string) (*domain.CascadeSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.contracts[id]; !ok {
		return nil, fmt.Errorf("delete contract: %w", domain.ErrNotFound)
	}
	summary := &domain.CascadeSummary{Contracts: 1, Payments: r.s.deletePaymentsOf(id)}
	delete(r.s.contracts, id)
	return summary, nil
}

func (r *ContractRepository) ExpireEnded(_ context.Context, asOf domain.Date) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, c := range r.s.contracts {
		if c.Status == domain.ContractStatusActive && c.EndDate.Before(asOf) {
			c.Status = domain.ContractStatusExpired
			c.UpdatedAt = r.s.stamp()
			r.s.contracts[id] = c
			n++
		}
	}
	return n, nil
}

// PaymentRepository implements domain.PaymentRepository
type PaymentRepository struct{ s *Store }

func (r *PaymentRepository) Create(_ context.Context, p *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.contracts[p.ContractID]; !ok {
		return fmt.Errorf("create payment: %w: payments_contract_id_fkey", domain.ErrForeignKey)
	}
	if _, ok := r.s.users[p.TenantID]; !ok {
		return fmt.Errorf("create payment: %w: payments_tenant_id_fkey", domain.ErrForeignKey)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = domain.PaymentStatusPending
	}
	if p.PaymentDate.IsZero() {
		p.PaymentDate = domain.Today()
	}
	p.CreatedAt = r.s.stamp()
	p.UpdatedAt = p.CreatedAt
	r.s.payments[p.ID] = *p
	return nil
}

func (r *PaymentRepository) GetByID(_ context.Context, id string) (*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.payments[id]
	if !ok {
		return nil, fmt.Errorf("get payment: %w", domain.ErrNotFound)
	}
	return &p, nil
}

func (r *PaymentRepository) ListByTenant(_ context.Context, tenantID string) ([]*domain.PaymentDetail, error) {
	out := r.details(func(p domain.Payment, _ domain.Contract) bool { return p.TenantID == tenantID })
	for _, d := range out {
		d.TenantName, d.TenantEmail = "", ""
	}
	return out, nil
}

func (r *PaymentRepository) ListByOwner(_ context.Context, ownerID string) ([]*domain.PaymentDetail, error) {
	out := r.details(func(_ domain.Payment, c domain.Contract) bool { return c.OwnerID == ownerID })
	for _, d := range out {
		d.OwnerName = ""
	}
	return out, nil
}

func (r *PaymentRepository) ListByContract(_ context.Context, contractID string) ([]*domain.PaymentDetail, error) {
	return r.details(func(p domain.Payment, _ domain.Contract) bool { return p.ContractID == contractID }), nil
}

func (r *PaymentRepository) details(keep func(domain.Payment, domain.Contract) bool) []*domain.PaymentDetail {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*domain.PaymentDetail{}
	for _, p := range r.s.payments {
		c, ok := r.s.contracts[p.ContractID]
		if !ok || !keep(p, c) {
			continue
		}
		rent := c.MonthlyRent
		d := &domain.PaymentDetail{
			Payment:     p,
			PropertyID:  c.PropertyID,
			MonthlyRent: &rent,
			OwnerID:     c.OwnerID,
		}
		if prop, ok := r.s.props[c.PropertyID]; ok {
			d.PropertyTitle = prop.Title
			d.PropertyLocation = prop.Location
		}
		if owner, ok := r.s.users[c.OwnerID]; ok {
			d.OwnerName = owner.Name
		}
		if tenant, ok := r.s.users[p.TenantID]; ok {
			d.TenantName = tenant.Name
			d.TenantEmail = tenant.Email
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PaymentDate.Equal(out[j].PaymentDate.Time) {
			return out[i].PaymentDate.After(out[j].PaymentDate.Time)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *PaymentRepository) Update(_ context.Context, p *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.payments[p.ID]
	if !ok {
		return fmt.Errorf("update payment: %w", domain.ErrNotFound)
	}
	current.Status = p.Status
	current.TransactionID = p.TransactionID
	current.Notes = p.Notes
	current.UpdatedAt = r.s.stamp()
	r.s.payments[p.ID] = current
	p.UpdatedAt = current.UpdatedAt
	return nil
}

func (r *PaymentRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.payments[id]; !ok {
		return fmt.Errorf("delete payment: %w", domain.ErrNotFound)
	}
	delete(r.s.payments, id)
	return nil
}

var (
	_ domain.UserRepository     = (*UserRepository)(nil)
	_ domain.PropertyRepository = (*PropertyRepository)(nil)
	_ domain.ContractRepository = (*ContractRepository)(nil)
	_ domain.PaymentRepository  = (*PaymentRepository)(nil)
	_ domain.Transactor         = (*Store)(nil)
)
