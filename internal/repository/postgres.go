package repository

import (
	"context"
	"errors"
	"fmt"

	"places-api/internal/apperr"
	"places-api/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// placeColumns is the select list every query scans with scanPlace.
const placeColumns = `id, name, description, ST_X(geom), ST_Y(geom), ST_SRID(geom)`

// pointExpr builds the stored geometry from x, y and srid parameters,
// reprojecting into the column's SRID.
const pointExpr = `ST_Transform(ST_SetSRID(ST_MakePoint(%s, %s), %s), 4326)`

// PostgresRepository stores places in a PostGIS table.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a place and returns it with its assigned id.
func (r *PostgresRepository) Create(ctx context.Context, name, description string, geom models.Point) (_ *models.Place, err error) {
	defer observe(ctx, "places.create")(&err)

	if err := r.checkSRID(ctx, geom.SRID); err != nil {
		return nil, err
	}

	sql := `
		INSERT INTO places (name, description, geom)
		VALUES ($1, $2, ` + fmt.Sprintf(pointExpr, "$3", "$4", "$5") + `)
		RETURNING ` + placeColumns

	place, err := scanPlace(r.db.QueryRow(ctx, sql, name, description, geom.X, geom.Y, geom.SRID))
	if err != nil {
		return nil, fmt.Errorf("repository: failed to insert place: %w", err)
	}

	return place, nil
}

// CreateMany inserts places in a single transaction and returns how many
// were written. IDs on the input are ignored.
func (r *PostgresRepository) CreateMany(ctx context.Context, places []models.Place) (_ int, err error) {
	defer observe(ctx, "places.create_many")(&err)

	if len(places) == 0 {
		return 0, nil
	}

	checked := map[int]bool{}
	for _, p := range places {
		if checked[p.Geom.SRID] {
			continue
		}
		if err := r.checkSRID(ctx, p.Geom.SRID); err != nil {
			return 0, err
		}
		checked[p.Geom.SRID] = true
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sql := `INSERT INTO places (name, description, geom) VALUES ($1, $2, ` + fmt.Sprintf(pointExpr, "$3", "$4", "$5") + `)`

	batch := &pgx.Batch{}
	for _, p := range places {
		batch.Queue(sql, p.Name, p.Description, p.Geom.X, p.Geom.Y, p.Geom.SRID)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range places {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return 0, fmt.Errorf("repository: failed to insert place %d of batch: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("repository: failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("repository: failed to commit batch: %w", err)
	}

	return len(places), nil
}

// Get returns the place with id, or apperr.ErrNotFound.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (_ *models.Place, err error) {
	defer observe(ctx, "places.get")(&err)

	sql := `SELECT ` + placeColumns + ` FROM places WHERE id = $1`

	place, err := scanPlace(r.db.QueryRow(ctx, sql, id))
	if err != nil {
		return nil, notFound(err, "repository: failed to get place")
	}

	return place, nil
}

// List returns one page of places in insertion order plus the total count.
func (r *PostgresRepository) List(ctx context.Context, limit, offset int) (_ []models.Place, _ int64, err error) {
	defer observe(ctx, "places.list")(&err)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM places`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count places: %w", err)
	}

	sql := `
		SELECT ` + placeColumns + `
		FROM places
		ORDER BY id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, sql, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to execute list query: %w", err)
	}
	defer rows.Close()

	places := []models.Place{}
	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository: failed to scan place: %w", err)
		}
		places = append(places, *place)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository: error iterating rows: %w", err)
	}

	return places, total, nil
}

// Update replaces every mutable field of the place with id.
func (r *PostgresRepository) Update(ctx context.Context, id int64, name, description string, geom models.Point) (_ *models.Place, err error) {
	defer observe(ctx, "places.update")(&err)

	if err := r.checkSRID(ctx, geom.SRID); err != nil {
		return nil, err
	}

	sql := `
		UPDATE places
		SET name = $2, description = $3, geom = ` + fmt.Sprintf(pointExpr, "$4", "$5", "$6") + `
		WHERE id = $1
		RETURNING ` + placeColumns

	place, err := scanPlace(r.db.QueryRow(ctx, sql, id, name, description, geom.X, geom.Y, geom.SRID))
	if err != nil {
		return nil, notFound(err, "repository: failed to update place")
	}

	return place, nil
}

// Patch changes only the fields set on patch.
func (r *PostgresRepository) Patch(ctx context.Context, id int64, patch models.PlacePatch) (_ *models.Place, err error) {
	defer observe(ctx, "places.patch")(&err)

	if patch.Empty() {
		return r.Get(ctx, id)
	}

	var x, y *float64
	var srid *int
	if patch.Geom != nil {
		if err := r.checkSRID(ctx, patch.Geom.SRID); err != nil {
			return nil, err
		}
		x, y, srid = &patch.Geom.X, &patch.Geom.Y, &patch.Geom.SRID
	}

	sql := `
		UPDATE places
		SET name = COALESCE($2, name),
			description = COALESCE($3, description),
			geom = CASE
				WHEN $4::float8 IS NULL THEN geom
				ELSE ` + fmt.Sprintf(pointExpr, "$4", "$5::float8", "$6::int") + `
			END
		WHERE id = $1
		RETURNING ` + placeColumns

	place, err := scanPlace(r.db.QueryRow(ctx, sql, id, patch.Name, patch.Description, x, y, srid))
	if err != nil {
		return nil, notFound(err, "repository: failed to patch place")
	}

	return place, nil
}

// Delete removes the place with id.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) (err error) {
	defer observe(ctx, "places.delete")(&err)

	tag, err := r.db.Exec(ctx, `DELETE FROM places WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete place: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repository: place %d: %w", id, apperr.ErrNotFound)
	}

	return nil
}

// Nearest performs a KNN query for the place closest to point under the
// planar metric of the column's SRID. Ties go to the lowest id. It returns
// nil, nil when no places are stored.
func (r *PostgresRepository) Nearest(ctx context.Context, point models.Point) (_ *models.Place, err error) {
	defer observe(ctx, "places.nearest")(&err)

	if err := r.checkSRID(ctx, point.SRID); err != nil {
		return nil, err
	}

	sql := `
		SELECT ` + placeColumns + `
		FROM places
		ORDER BY geom <-> ` + fmt.Sprintf(pointExpr, "$1", "$2", "$3") + `, id
		LIMIT 1
	`

	place, err := scanPlace(r.db.QueryRow(ctx, sql, point.X, point.Y, point.SRID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("repository: failed to execute spatial query: %w", err)
	}

	return place, nil
}

// checkSRID rejects reference systems PostGIS cannot transform from.
func (r *PostgresRepository) checkSRID(ctx context.Context, srid int) error {
	if srid == models.DefaultSRID {
		return nil
	}

	var known bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM spatial_ref_sys WHERE srid = $1)`, srid).Scan(&known)
	if err != nil {
		return fmt.Errorf("repository: failed to look up srid: %w", err)
	}
	if !known {
		return apperr.FieldError("geom", fmt.Sprintf("unknown SRID %d", srid))
	}

	return nil
}

func scanPlace(row pgx.Row) (*models.Place, error) {
	var p models.Place
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Geom.X,
		&p.Geom.Y,
		&p.Geom.SRID,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func notFound(err error, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, apperr.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
