package postgres

import (
	"time"

	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
)

// CustomerRepo persists customers.
type CustomerRepo struct{ Pool PgxPool }

// NewCustomerRepo constructs a CustomerRepo with the given pool.
func NewCustomerRepo(p PgxPool) *CustomerRepo { return &CustomerRepo{Pool: p} }

const customerColumns = `id, name, gender, date_of_birth, email, mobile, pan, account_number, ifsc, bank_name, created_at, last_accessed`

// Create inserts c. Duplicate email, mobile, PAN or account number yields ErrConflict.
func (r *CustomerRepo) Create(ctx domain.Context, c domain.Customer) (domain.Customer, error) {
	ctx, span := startSpan(ctx, "customers", "INSERT", "customers.Create")
	defer span.End()

	c.CreatedAt = time.Now().UTC()
	q := `INSERT INTO customers (name, gender, date_of_birth, email, mobile, pan, account_number, ifsc, bank_name, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`
	err := r.Pool.QueryRow(ctx, q, c.Name, c.Gender, c.DateOfBirth, c.Email, c.Mobile, c.PAN, c.AccountNumber, c.IFSC, c.BankName, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		span.RecordError(err)
		return domain.Customer{}, wrapErr("customer.create", err)
	}
	return c, nil
}

// Get loads a customer by id.
func (r *CustomerRepo) Get(ctx domain.Context, id int64) (domain.Customer, error) {
	ctx, span := startSpan(ctx, "customers", "SELECT", "customers.Get")
	defer span.End()

	q := `SELECT ` + customerColumns + ` FROM customers WHERE id=$1`
	var c domain.Customer
	err := r.Pool.QueryRow(ctx, q, id).Scan(&c.ID, &c.Name, &c.Gender, &c.DateOfBirth, &c.Email, &c.Mobile, &c.PAN, &c.AccountNumber, &c.IFSC, &c.BankName, &c.CreatedAt, &c.LastAccessed)
	if err != nil {
		return domain.Customer{}, wrapErr("customer.get", err)
	}
	return c, nil
}
