package index

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/orbit-hdl/orbit/internal/catalog"
	"github.com/orbit-hdl/orbit/internal/vhdl"
)

// Rebuild wipes and repopulates the index from the catalog in one
// transaction. Releases whose sources fail to parse cleanly are indexed
// without units rather than skipped; a duplicate-unit release is recorded
// the same way so search still finds it.
func (ix *Index) Rebuild(ctx context.Context, cat *catalog.Catalog) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM units`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ips`); err != nil {
		return err
	}

	for _, name := range cat.Names() {
		for _, entry := range cat.Lookup(name) {
			if err := indexEntry(ctx, tx, entry); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func indexEntry(ctx context.Context, tx *sql.Tx, entry *catalog.Entry) error {
	sum := ""
	if entry.Sum != nil {
		sum = entry.Sum.String()
	}
	library := ""
	if !entry.Man.Library.IsZero() {
		library = entry.Man.Library.String()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO ips (name, version, tier, library, description, sum, root)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.Man.Name.Key(), entry.Man.Version.String(), entry.Tier.String(),
		library, entry.Man.Description, sum, entry.Root,
	)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", entry.Man.Name, err)
	}
	ipID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	units, err := vhdl.CollectUnits(entry.Root)
	if err != nil {
		// unreadable or duplicate-ridden releases stay searchable by name
		return nil
	}
	for _, name := range vhdl.UnitNames(units) {
		unit := units[name.Key()]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO units (ip_id, name, kind, file) VALUES (?, ?, ?, ?)`,
			ipID, name.Key(), unit.Kind.String(), unit.File,
		); err != nil {
			return fmt.Errorf("indexing unit %s: %w", name, err)
		}
	}
	return nil
}
