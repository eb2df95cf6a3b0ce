package allocation

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/acalderon/cartera/internal/domain"
)

// Repository handles allocation target database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new allocation repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "allocation").Logger(),
	}
}

// Target is one configured allocation target.
type Target struct {
	AssetClass string    `json:"asset_class"`
	TargetPct  float64   `json:"target_pct"`
	Active     bool      `json:"active"`
	UpdatedAt  time.Time `json:"-"`
}

// EnsureDefaults seeds the Swensen default targets if none are configured.
func (r *Repository) EnsureDefaults() error {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM allocation_config").Scan(&count); err != nil {
		return fmt.Errorf("failed to count allocation config: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now().Unix()
	for _, class := range Classes {
		_, err := r.db.Exec(
			"INSERT INTO allocation_config (asset_class, target_pct, active, updated_at) VALUES (?, ?, 1, ?)",
			class.Code, class.Target, now,
		)
		if err != nil {
			return fmt.Errorf("failed to seed allocation config: %w", err)
		}
	}

	r.log.Info().Int("classes", len(Classes)).Msg("Seeded default allocation targets")
	return nil
}

// GetTargets returns the active target percentage per bucket, falling back
// to the Swensen defaults when nothing is configured.
func (r *Repository) GetTargets() (map[string]float64, error) {
	rows, err := r.db.Query("SELECT asset_class, target_pct FROM allocation_config WHERE active = 1")
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation targets: %w", err)
	}
	defer rows.Close()

	targets := make(map[string]float64)
	for rows.Next() {
		var class string
		var pct float64
		if err := rows.Scan(&class, &pct); err != nil {
			return nil, fmt.Errorf("failed to scan allocation target: %w", err)
		}
		targets[class] = pct
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocation targets: %w", err)
	}

	if len(targets) == 0 {
		return DefaultTargets(), nil
	}
	return targets, nil
}

// SetTarget upserts one bucket's target percentage.
func (r *Repository) SetTarget(assetClass string, targetPct float64) error {
	if !IsValidClass(assetClass) {
		return domain.Validationf("unknown asset class: %s", assetClass)
	}
	if targetPct < 0 || targetPct > 100 {
		return domain.Validationf("target percentage must be between 0 and 100")
	}

	_, err := r.db.Exec(`
		INSERT INTO allocation_config (asset_class, target_pct, active, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(asset_class) DO UPDATE SET target_pct = excluded.target_pct, updated_at = excluded.updated_at`,
		assetClass, targetPct, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to set allocation target: %w", err)
	}

	r.log.Info().Str("asset_class", assetClass).Float64("target_pct", targetPct).Msg("Allocation target updated")
	return nil
}
