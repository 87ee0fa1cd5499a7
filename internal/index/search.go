package index

import (
	"context"
	"fmt"
	"strings"
)

// Hit is one search result.
type Hit struct {
	Name        string
	Version     string
	Tier        string
	Library     string
	Description string
	Sum         string
	Root        string
	Units       []string
}

// Search returns releases whose name, description, or unit names contain
// the query (case-insensitive). Results are ordered by name, then version
// text descending; dotted versions do not sort semantically in SQL, so
// callers needing true version order re-sort. An empty query lists
// everything.
func (ix *Index) Search(ctx context.Context, query string) ([]Hit, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	rows, err := ix.db.QueryContext(ctx, `
		SELECT DISTINCT i.id, i.name, i.version, i.tier, i.library, i.description, i.sum, i.root
		FROM ips i
		LEFT JOIN units u ON u.ip_id = i.id
		WHERE i.name LIKE ? OR lower(i.description) LIKE ? OR u.name LIKE ?
		ORDER BY i.name ASC, i.version DESC, i.tier ASC`,
		pattern, pattern, pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer rows.Close()

	var hits []Hit
	var ids []int64
	for rows.Next() {
		var id int64
		var h Hit
		if err := rows.Scan(&id, &h.Name, &h.Version, &h.Tier, &h.Library, &h.Description, &h.Sum, &h.Root); err != nil {
			return nil, err
		}
		hits = append(hits, h)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		units, err := ix.unitsOf(ctx, id)
		if err != nil {
			return nil, err
		}
		hits[i].Units = units
	}
	return hits, nil
}

func (ix *Index) unitsOf(ctx context.Context, ipID int64) ([]string, error) {
	rows, err := ix.db.QueryContext(ctx,
		`SELECT name FROM units WHERE ip_id = ? ORDER BY name ASC`, ipID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var units []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		units = append(units, name)
	}
	return units, rows.Err()
}
