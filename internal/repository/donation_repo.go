package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tinbox/internal/model"
	"tinbox/internal/store"
	"tinbox/pkg/idgen"

	"gorm.io/gorm"
)

// Missing values are normalized in SQL so NULL columns never reach the struct.
const donationColumns = "id, " +
	"COALESCE(store_name, '') AS store_name, " +
	"COALESCE(location, '') AS location, " +
	"COALESCE(collected, 'no') AS collected, " +
	"COALESCE(amount, 0) AS amount, " +
	"COALESCE(notes, '') AS notes"

// DonationRepository is the relational RecordStore (sqlite or mysql).
type DonationRepository struct {
	db     *gorm.DB
	outbox *OutboxRepository
	topic  string
}

var _ store.RecordStore = (*DonationRepository)(nil)

// NewDonationRepository creates a repository over db.
func NewDonationRepository(db *gorm.DB) *DonationRepository {
	return &DonationRepository{db: db}
}

// WithNotifications makes every mutation enqueue a change event on topic
// in the same transaction.
func (r *DonationRepository) WithNotifications(outbox *OutboxRepository, topic string) *DonationRepository {
	r.outbox = outbox
	r.topic = topic
	return r
}

// Initialize creates the donations table, and the outbox table when
// notifications are on. Safe to call on every start.
func (r *DonationRepository) Initialize(ctx context.Context) error {
	tables := []interface{}{&model.Donation{}}
	if r.outbox != nil {
		tables = append(tables, &model.OutboxMessage{})
	}
	if err := r.db.WithContext(ctx).AutoMigrate(tables...); err != nil {
		return fmt.Errorf("migrate donations: %w", err)
	}
	return nil
}

// Add inserts a record and returns its new id.
func (r *DonationRepository) Add(ctx context.Context, fields model.DonationFields) (int64, error) {
	donation := model.NewDonation(fields)
	err := r.write(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(donation).Error; err != nil {
			return err
		}
		f := donation.Fields()
		return r.enqueue(ctx, tx, model.EventDonationCreated, donation.ID, &f)
	})
	if err != nil {
		return 0, fmt.Errorf("insert donation: %w", err)
	}
	return donation.ID, nil
}

// List returns every record in ascending id order.
func (r *DonationRepository) List(ctx context.Context) ([]model.Donation, error) {
	var donations []model.Donation
	err := r.db.WithContext(ctx).
		Model(&model.Donation{}).
		Select(donationColumns).
		Order("id ASC").
		Find(&donations).Error
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	for i := range donations {
		donations[i].Collected = donations[i].Collected.Normalize()
	}
	return donations, nil
}

// Get returns one record, or store.ErrNotFound.
func (r *DonationRepository) Get(ctx context.Context, id int64) (*model.Donation, error) {
	var donation model.Donation
	err := r.db.WithContext(ctx).
		Model(&model.Donation{}).
		Select(donationColumns).
		Where("id = ?", id).
		Take(&donation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get donation %d: %w", id, err)
	}
	donation.Collected = donation.Collected.Normalize()
	return &donation, nil
}

// Update replaces the five editable fields of id.
func (r *DonationRepository) Update(ctx context.Context, id int64, fields model.DonationFields) error {
	var next model.Donation
	next.Apply(fields)

	err := r.write(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&model.Donation{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"store_name": next.StoreName,
				"location":   next.Location,
				"collected":  next.Collected,
				"amount":     next.Amount,
				"notes":      next.Notes,
			})
		if result.Error != nil {
			return result.Error
		}

		// MySQL reports zero affected rows when nothing changed, so confirm
		// the row is really missing before calling it not found.
		if result.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&model.Donation{}).Where("id = ?", id).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return store.ErrNotFound
			}
		}

		f := next.Fields()
		return r.enqueue(ctx, tx, model.EventDonationUpdated, id, &f)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("update donation %d: %w", id, err)
	}
	return nil
}

// Delete removes id. Unknown ids are ignored.
func (r *DonationRepository) Delete(ctx context.Context, id int64) error {
	err := r.write(ctx, func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&model.Donation{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		return r.enqueue(ctx, tx, model.EventDonationDeleted, id, nil)
	})
	if err != nil {
		return fmt.Errorf("delete donation %d: %w", id, err)
	}
	return nil
}

// write runs fn as a single statement, or inside a transaction when change
// events are enabled so the event commits with the row.
func (r *DonationRepository) write(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db := r.db.WithContext(ctx)
	if r.outbox == nil {
		return fn(db)
	}
	return db.Transaction(fn)
}

func (r *DonationRepository) enqueue(ctx context.Context, tx *gorm.DB, eventType string, id int64, fields *model.DonationFields) error {
	if r.outbox == nil {
		return nil
	}

	payload, err := json.Marshal(model.DonationEvent{
		Type:       eventType,
		DonationID: id,
		Fields:     fields,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return r.outbox.Create(ctx, tx, &model.OutboxMessage{
		MessageKey: idgen.GenerateEventKey(),
		Topic:      r.topic,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	})
}
