// Package staff manages till operator profiles and their PINs. PINs are
// bcrypt-hashed on the device; only the hash is stored or synced.
package staff

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/counterline/counterline/internal/model"
	"github.com/counterline/counterline/internal/outbox"
	"github.com/counterline/counterline/internal/store"
	"github.com/counterline/counterline/internal/tenant"
)

// Remote actions for staff mutations. Both share a per-profile outbox
// resource so a queued PIN change is never overtaken by a later profile
// save.
const (
	ActionSave = "staff.save"
	ActionPIN  = "staff.pin"
)

// ErrBadPIN is returned when a PIN check fails.
var ErrBadPIN = errors.New("pin does not match")

// ErrStaffNotFound is returned for operations on an unknown profile.
var ErrStaffNotFound = errors.New("staff profile not found")

// Service runs staff profile mutations with the same commit-locally,
// try-then-queue pattern as ticket mutations.
type Service struct {
	DB      *sql.DB
	Deliver outbox.DeliverFunc
	Logger  *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewService wires a staff service over the local store and a remote
// delivery call.
func NewService(db *sql.DB, deliver outbox.DeliverFunc, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		DB:      db,
		Deliver: deliver,
		Logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// pinPayload is the wire form of a PIN change: the hash travels, the
// clear-text PIN never does.
type pinPayload struct {
	StaffID   string `json:"staffId"`
	PinHash   string `json:"pinHash"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Save writes a staff profile locally and forwards it remotely. An
// empty ID gets a generated one. The profile's PinHash is ignored here;
// PIN changes go through SetPIN.
func (s *Service) Save(ctx context.Context, tctx tenant.Context, p model.StaffProfile) (*model.StaffProfile, error) {
	if p.Name == "" {
		return nil, errors.New("staff profile needs a name")
	}
	if p.ID == "" {
		p.ID = s.newID()
	}
	if p.Role == "" {
		p.Role = model.StaffRoleCashier
	}
	p.PinHash = ""
	p.UpdatedAt = s.now().UnixMilli()

	if err := store.UpsertStaff(ctx, s.DB, p); err != nil {
		return nil, err
	}
	if err := outbox.TryThenQueue(ctx, s.DB, s.Deliver, ActionSave, "staff:"+p.ID, p, p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetPIN hashes the PIN with bcrypt, stores the hash, and forwards it.
func (s *Service) SetPIN(ctx context.Context, tctx tenant.Context, staffID, pin string) error {
	if len(pin) < 4 {
		return errors.New("pin must be at least 4 digits")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing pin: %w", err)
	}

	now := s.now().UnixMilli()
	if err := store.SetStaffPIN(ctx, s.DB, staffID, string(hash), now); err != nil {
		return err
	}

	payload := pinPayload{StaffID: staffID, PinHash: string(hash), UpdatedAt: now}
	return outbox.TryThenQueue(ctx, s.DB, s.Deliver, ActionPIN, "staff:"+staffID, payload, now)
}

// VerifyPIN checks a clear-text PIN against the stored hash. A profile
// with no PIN set never verifies.
func (s *Service) VerifyPIN(ctx context.Context, staffID, pin string) (*model.StaffProfile, error) {
	p, err := store.GetStaff(ctx, s.DB, staffID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrStaffNotFound
	}
	if p.PinHash == "" {
		return nil, ErrBadPIN
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PinHash), []byte(pin)); err != nil {
		return nil, ErrBadPIN
	}
	return p, nil
}

// List returns all staff profiles.
func (s *Service) List(ctx context.Context) ([]model.StaffProfile, error) {
	return store.ListStaff(ctx, s.DB)
}
