package repository

import (
	"backend/models"
	"database/sql"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

// GenerateQuoteNumber produces a random quote number like "EQ-482913520".
func GenerateQuoteNumber() string {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return fmt.Sprintf("EQ-%d", rng.Intn(900000000)+100000000)
}

// GenerateVersionCode returns the next version code in the "RV-xx" sequence.
func GenerateVersionCode(previousVersion string) string {
	if previousVersion == "" {
		return "RV-01"
	}

	if !strings.HasPrefix(previousVersion, "RV-") {
		return "RV-01"
	}

	versionNumberStr := strings.TrimPrefix(previousVersion, "RV-")

	versionNumber, err := strconv.Atoi(versionNumberStr)
	if err != nil {
		return "RV-01"
	}

	nextVersion := versionNumber + 1

	return "RV-" + fmt.Sprintf("%02d", nextVersion)
}

// RowRepository is the row-query provider consumed by the group services.
// Base quote rows live with a null version_id; forked rows carry the
// version id plus a replicated_row_id back-reference.
type RowRepository struct {
	db *sql.DB
}

func NewRowRepository(db *sql.DB) *RowRepository {
	return &RowRepository{db: db}
}

const rowColumns = `id, quote_id, COALESCE(version_id, 0), COALESCE(replicated_row_id::text, ''),
	   product_no, description, serial_no, qty, price, created_at`

func scanRows(rows *sql.Rows) ([]models.MappedRow, error) {
	var result []models.MappedRow
	for rows.Next() {
		var r models.MappedRow
		if err := rows.Scan(&r.ID, &r.QuoteID, &r.VersionID, &r.ReplicatedRowID,
			&r.ProductNo, &r.Description, &r.SerialNo, &r.Qty, &r.Price, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mapped row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// StateRows returns the ordered rows of one quote state. versionID 0 means
// the base quote state.
func (rr *RowRepository) StateRows(quoteID, versionID int) ([]models.MappedRow, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if versionID == 0 {
		rows, err = rr.db.Query(`SELECT `+rowColumns+`
			FROM mapped_rows WHERE quote_id = $1 AND version_id IS NULL
			ORDER BY created_at ASC, id ASC`, quoteID)
	} else {
		rows, err = rr.db.Query(`SELECT `+rowColumns+`
			FROM mapped_rows WHERE version_id = $1
			ORDER BY created_at ASC, id ASC`, versionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rows for quote %d: %w", quoteID, err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// SearchStateRows matches the search text against the row field values.
// The text is tokenized on commas; each token is matched independently and
// the matches are OR'd together, then unioned with the rows already listed
// in includeIDs (the rows of the group being edited).
func (rr *RowRepository) SearchStateRows(quoteID, versionID int, search string, includeIDs []string) ([]models.MappedRow, error) {
	whereClauses := []string{}
	args := []interface{}{}
	argIndex := 1

	if versionID == 0 {
		whereClauses = append(whereClauses, fmt.Sprintf("quote_id = $%d AND version_id IS NULL", argIndex))
		args = append(args, quoteID)
	} else {
		whereClauses = append(whereClauses, fmt.Sprintf("version_id = $%d", argIndex))
		args = append(args, versionID)
	}
	argIndex++

	matchClauses := []string{}
	for _, token := range strings.Split(search, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		matchClauses = append(matchClauses, fmt.Sprintf(
			"(product_no ILIKE $%d OR description ILIKE $%d OR serial_no ILIKE $%d)",
			argIndex, argIndex, argIndex))
		args = append(args, "%"+token+"%")
		argIndex++
	}

	memberClause := ""
	if len(includeIDs) > 0 {
		memberClause = fmt.Sprintf("id = ANY($%d)", argIndex)
		args = append(args, pq.Array(includeIDs))
		argIndex++
	}

	switch {
	case len(matchClauses) > 0 && memberClause != "":
		whereClauses = append(whereClauses, "("+strings.Join(matchClauses, " OR ")+" OR "+memberClause+")")
	case len(matchClauses) > 0:
		whereClauses = append(whereClauses, "("+strings.Join(matchClauses, " OR ")+")")
	case memberClause != "":
		whereClauses = append(whereClauses, memberClause)
	}

	query := `SELECT ` + rowColumns + ` FROM mapped_rows WHERE ` +
		strings.Join(whereClauses, " AND ") + ` ORDER BY created_at ASC, id ASC`

	rows, err := rr.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search rows for quote %d: %w", quoteID, err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// RemapReplicated translates row ids of a prior state into the ids of their
// replicas inside the given version. Rows without a replica are dropped.
func (rr *RowRepository) RemapReplicated(versionID int, oldRowIDs []string) ([]string, error) {
	if len(oldRowIDs) == 0 {
		return nil, nil
	}

	rows, err := rr.db.Query(`
		SELECT id FROM mapped_rows
		WHERE version_id = $1 AND replicated_row_id = ANY($2)`,
		versionID, pq.Array(oldRowIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to remap replicated rows for version %d: %w", versionID, err)
	}
	defer rows.Close()

	var newIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan remapped row id: %w", err)
		}
		newIDs = append(newIDs, id)
	}
	return newIDs, rows.Err()
}

// InsertRows bulk-inserts imported rows into a quote state.
func (rr *RowRepository) InsertRows(rows []models.MappedRow) error {
	tx, err := rr.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for row import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO mapped_rows (id, quote_id, version_id, product_no, description, serial_no, qty, price, created_at)
		VALUES ($1, $2, NULLIF($3, 0), $4, $5, $6, $7, $8, $9)`)
	if err != nil {
		return fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.ID, r.QuoteID, r.VersionID, r.ProductNo,
			r.Description, r.SerialNo, r.Qty, r.Price, r.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert row %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}
