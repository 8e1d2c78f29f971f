package sqlstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Counters backs human-readable numbering (offer and policy numbers).
type Counters struct{ base }

// bumpCounter inserts the row at 1 or increments it in the same statement, so a
// concurrent first use never fails inside the transaction.
func bumpCounter(tx *gorm.DB, name string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]any{"seq": gorm.Expr("counters.seq + 1")}),
	}).Create(&counterRecord{Name: name, Seq: 1}).Error
}

func (r *Counters) NextSequence(ctx context.Context, name string) (int64, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var seq int64
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := bumpCounter(tx, name); err != nil {
			return err
		}
		var rec counterRecord
		if err := tx.Where("name = ?", name).First(&rec).Error; err != nil {
			return err
		}
		seq = rec.Seq
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("counters.next %s: %w", name, err)
	}
	return seq, nil
}
