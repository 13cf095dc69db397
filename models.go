package subscribeto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account record. Salt and pepper are the only stored
// credential material; the password itself is never persisted.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	Salt          []byte     `bun:"salt,notnull" json:"-"`
	Pepper        []byte     `bun:"pepper,notnull" json:"-"`
	TOTPSecret    string     `bun:"totp_secret" json:"-"`
	TOTPEnabled   bool       `bun:"totp_enabled" json:"totp_enabled,omitempty"`
	SMSEnabled    bool       `bun:"sms_enabled" json:"sms_enabled,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Validate checks the persisted invariants of a user record.
func (u *User) Validate() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.Email, validation.Required, is.Email),
		validation.Field(&u.Salt, validation.Required, validation.Length(SaltLength, SaltLength)),
		validation.Field(&u.Pepper, validation.Required),
	)
}

// Session is one authenticated presence. Sessions are created on every
// successful sign in, mutated when the user switches business context, and
// only ever marked dead, never deleted.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        *uuid.UUID `bun:"user_id" json:"user_id,omitempty"`
	BusinessID    *uuid.UUID `bun:"business_id" json:"business_id,omitempty"`
	Dead          bool       `bun:"dead,notnull,default:false" json:"dead"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Alive reports whether the session can still grant anything.
func (s *Session) Alive() bool {
	return s != nil && !s.Dead
}

// Admin is the administrator allow list. Presence of a user id here is the
// entire admin predicate; there is no flag on the user record.
type Admin struct {
	bun.BaseModel `bun:"table:admins,alias:adm"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Business is a tenant storefront.
type Business struct {
	bun.BaseModel `bun:"table:businesses,alias:biz"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Lat           float64    `bun:"lat" json:"lat"`
	Lng           float64    `bun:"lng" json:"lng"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Validate checks the persisted invariants of a business record.
func (b *Business) Validate() error {
	return validation.ValidateStruct(b,
		validation.Field(&b.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&b.Lat, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&b.Lng, validation.Min(-180.0), validation.Max(180.0)),
	)
}

// BusinessOwner links a user to a business they administer.
type BusinessOwner struct {
	bun.BaseModel `bun:"table:business_owners,alias:bow"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	BusinessID    uuid.UUID  `bun:"business_id,notnull,type:uuid" json:"business_id,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Product is something a business sells through programs.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:prd"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	BusinessID    uuid.UUID  `bun:"business_id,notnull,type:uuid" json:"business_id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Description   string     `bun:"description" json:"description,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Validate checks the persisted invariants of a product record.
func (p *Product) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.BusinessID, validation.Required, validation.By(requireUUID)),
		validation.Field(&p.Name, validation.Required, validation.Length(1, 120)),
	)
}

// Program is the recurring offer for a product: a price in cents and a
// per-period allowance. Price and allowance are immutable once subscribers
// can exist; a change closes the program and mints a successor linked
// through SuccessorID.
type Program struct {
	bun.BaseModel `bun:"table:programs,alias:prg"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	BusinessID    uuid.UUID  `bun:"business_id,notnull,type:uuid" json:"business_id,omitempty"`
	ProductID     uuid.UUID  `bun:"product_id,notnull,type:uuid" json:"product_id,omitempty"`
	Price         int64      `bun:"price,notnull" json:"price"`
	Allowance     int        `bun:"allowance,notnull" json:"allowance"`
	SuccessorID   *uuid.UUID `bun:"successor_id,type:uuid" json:"successor_id,omitempty"`
	Closed        bool       `bun:"closed,notnull,default:false" json:"closed"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Validate checks the persisted invariants of a program record.
func (p *Program) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.BusinessID, validation.Required, validation.By(requireUUID)),
		validation.Field(&p.ProductID, validation.Required, validation.By(requireUUID)),
		validation.Field(&p.Price, validation.Min(int64(0))),
		validation.Field(&p.Allowance, validation.Min(0)),
	)
}

// WithChangedPrice returns the successor program for a price change. The
// receiver is untouched; the caller closes it when persisting.
func (p *Program) WithChangedPrice(price int64) *Program {
	next := *p
	next.ID = uuid.New()
	next.Price = price
	next.SuccessorID = nil
	next.Closed = false
	next.CreatedAt = nil
	next.UpdatedAt = nil
	return &next
}

// WithChangedAllowance returns the successor program for an allowance change.
func (p *Program) WithChangedAllowance(allowance int) *Program {
	next := *p
	next.ID = uuid.New()
	next.Allowance = allowance
	next.SuccessorID = nil
	next.Closed = false
	next.CreatedAt = nil
	next.UpdatedAt = nil
	return &next
}

// Subscription enrolls a user in a program.
type Subscription struct {
	bun.BaseModel `bun:"table:subscriptions,alias:sub"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	BusinessID    uuid.UUID  `bun:"business_id,notnull,type:uuid" json:"business_id,omitempty"`
	ProgramID     uuid.UUID  `bun:"program_id,notnull,type:uuid" json:"program_id,omitempty"`
	AutoRenew     bool       `bun:"auto_renew,notnull,default:true" json:"auto_renew"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

func requireUUID(value any) error {
	id, ok := value.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return validation.NewError("validation_required", "must be a non nil uuid")
	}
	return nil
}
