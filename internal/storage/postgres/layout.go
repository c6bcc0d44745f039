package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/caveshuffle/internal/area"
)

// ErrLayoutNotFound is returned when a layout lookup yields no results.
var ErrLayoutNotFound = errors.New("layout not found")

// ErrLayoutExists is returned when a run id has already been recorded.
var ErrLayoutExists = errors.New("layout already exists")

// Layout is one recorded shuffle result.
type Layout struct {
	ID       int64
	RunID    uuid.UUID
	AreaID   int
	AreaName string
	Strategy string
	Seed     uint64
	Attempts int
	Width    int
	Height   int
	// Screens is indexed [row][column].
	Screens   [][]int
	CreatedAt time.Time
}

// NewLayout captures the current screens of a.
//
// Precondition: a is non-nil and its screen rows match Width and Height.
func NewLayout(runID uuid.UUID, a *area.Area, strategy string, seed uint64, attempts int) *Layout {
	screens := make([][]int, len(a.Screens))
	for y, row := range a.Screens {
		screens[y] = append([]int(nil), row...)
	}
	return &Layout{
		RunID:    runID,
		AreaID:   a.ID,
		AreaName: a.Name,
		Strategy: strategy,
		Seed:     seed,
		Attempts: attempts,
		Width:    a.Width,
		Height:   a.Height,
		Screens:  screens,
	}
}

// LayoutRepository provides layout history persistence.
type LayoutRepository struct {
	db *pgxpool.Pool
}

// NewLayoutRepository creates a LayoutRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewLayoutRepository(db *pgxpool.Pool) *LayoutRepository {
	return &LayoutRepository{db: db}
}

const layoutColumns = `id, run_id, area_id, area_name, strategy, seed, attempts, width, height, screens, created_at`

// Save records l.
//
// Precondition: l.Screens has l.Height rows of l.Width screens.
// Postcondition: Returns the stored layout with ID and CreatedAt set, or
// ErrLayoutExists if l.RunID was already recorded.
func (r *LayoutRepository) Save(ctx context.Context, l *Layout) (*Layout, error) {
	flat, err := flattenScreens(l.Screens, l.Width, l.Height)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO layouts (run_id, area_id, area_name, strategy, seed, attempts, width, height, screens)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+layoutColumns,
		l.RunID, l.AreaID, l.AreaName, l.Strategy, int64(l.Seed), l.Attempts, l.Width, l.Height, flat,
	)
	saved, err := scanLayout(row)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrLayoutExists
		}
		return nil, fmt.Errorf("inserting layout: %w", err)
	}
	return saved, nil
}

// GetByRunID retrieves the layout recorded by a shuffle run.
//
// Postcondition: Returns the layout or ErrLayoutNotFound.
func (r *LayoutRepository) GetByRunID(ctx context.Context, runID uuid.UUID) (*Layout, error) {
	row := r.db.QueryRow(ctx, `SELECT `+layoutColumns+` FROM layouts WHERE run_id = $1`, runID)
	l, err := scanLayout(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLayoutNotFound
		}
		return nil, fmt.Errorf("querying layout: %w", err)
	}
	return l, nil
}

// ListByArea returns up to limit layouts of an area, newest first.
//
// Precondition: limit > 0.
func (r *LayoutRepository) ListByArea(ctx context.Context, areaID int, limit int) ([]*Layout, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+layoutColumns+`
		FROM layouts
		WHERE area_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		areaID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing layouts: %w", err)
	}
	defer rows.Close()

	var layouts []*Layout
	for rows.Next() {
		l, err := scanLayout(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning layout: %w", err)
		}
		layouts = append(layouts, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating layouts: %w", err)
	}
	return layouts, nil
}

// DeleteByArea removes every layout recorded for an area and reports how many
// were removed.
func (r *LayoutRepository) DeleteByArea(ctx context.Context, areaID int) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM layouts WHERE area_id = $1`, areaID)
	if err != nil {
		return 0, fmt.Errorf("deleting layouts: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanLayout(row pgx.Row) (*Layout, error) {
	var (
		l    Layout
		seed int64
		flat []int32
	)
	err := row.Scan(&l.ID, &l.RunID, &l.AreaID, &l.AreaName, &l.Strategy, &seed,
		&l.Attempts, &l.Width, &l.Height, &flat, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	l.Seed = uint64(seed)
	l.Screens, err = unflattenScreens(flat, l.Width, l.Height)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// flattenScreens stores rows end to end.
func flattenScreens(screens [][]int, w, h int) ([]int32, error) {
	if len(screens) != h {
		return nil, fmt.Errorf("layout has %d rows, want %d", len(screens), h)
	}
	flat := make([]int32, 0, w*h)
	for y, row := range screens {
		if len(row) != w {
			return nil, fmt.Errorf("layout row %d has %d screens, want %d", y, len(row), w)
		}
		for _, scr := range row {
			flat = append(flat, int32(scr))
		}
	}
	return flat, nil
}

func unflattenScreens(flat []int32, w, h int) ([][]int, error) {
	if len(flat) != w*h {
		return nil, fmt.Errorf("stored layout has %d screens, want %dx%d", len(flat), w, h)
	}
	screens := make([][]int, h)
	for y := range screens {
		screens[y] = make([]int, w)
		for x := range screens[y] {
			screens[y][x] = int(flat[y*w+x])
		}
	}
	return screens, nil
}

func isDuplicateKeyError(err error) bool {
	// pgx wraps PostgreSQL errors; check for SQLSTATE 23505 (unique_violation)
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
