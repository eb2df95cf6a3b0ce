package custodians

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/acalderon/cartera/internal/domain"
	"github.com/acalderon/cartera/internal/modules/portfolio"
)

// Service implements custodian CRUD and the holdings-per-custodian view.
type Service struct {
	repo      *Repository
	portfolio *portfolio.Service
	log       zerolog.Logger
}

// NewService creates a new custodian service
func NewService(repo *Repository, portfolioSvc *portfolio.Service, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		portfolio: portfolioSvc,
		log:       log.With().Str("service", "custodians").Logger(),
	}
}

// Input is the payload for creating or updating a custodian.
type Input struct {
	Name string  `json:"name"`
	Kind *string `json:"kind"`
}

// Overview is a custodian together with the value it currently holds.
type Overview struct {
	domain.Custodian
	TotalInvested float64 `json:"total_invested"`
	CurrentValue  float64 `json:"current_value"`
	NumPositions  int     `json:"num_positions"`
}

// List returns all custodians without valuation data.
func (s *Service) List() ([]domain.Custodian, error) {
	return s.repo.List()
}

// Get returns one custodian by id.
func (s *Service) Get(id int64) (*domain.Custodian, error) {
	return s.repo.GetByID(id)
}

// ListWithHoldings joins the custodian registry with the current
// portfolio breakdown. Custodians holding nothing report zero values;
// holdings recorded under a custodian that was never registered are not
// shown here, they still appear in the portfolio breakdown under their
// free-form name.
func (s *Service) ListWithHoldings(ctx context.Context) ([]Overview, error) {
	all, err := s.repo.List()
	if err != nil {
		return nil, err
	}
	groups, err := s.portfolio.ByCustodian(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]portfolio.GroupBreakdown, len(groups))
	for _, g := range groups {
		byName[g.Group] = g
	}

	out := make([]Overview, 0, len(all))
	for _, c := range all {
		o := Overview{Custodian: c}
		if g, ok := byName[c.Name]; ok {
			o.TotalInvested = g.Invested
			o.CurrentValue = g.CurrentValue
			o.NumPositions = g.Positions
		}
		out = append(out, o)
	}
	return out, nil
}

// Create validates and stores a new custodian.
func (s *Service) Create(input Input) (*domain.Custodian, error) {
	name, kind, err := s.validate(input)
	if err != nil {
		return nil, err
	}
	c := &domain.Custodian{Name: name, Kind: kind}
	if err := s.repo.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update applies new values to an existing custodian.
func (s *Service) Update(id int64, input Input) (*domain.Custodian, error) {
	name, kind, err := s.validate(input)
	if err != nil {
		return nil, err
	}
	c := &domain.Custodian{ID: id, Name: name, Kind: kind}
	if err := s.repo.Update(c); err != nil {
		return nil, err
	}
	return s.repo.GetByID(id)
}

// Delete removes a custodian from the registry.
func (s *Service) Delete(id int64) error {
	return s.repo.Delete(id)
}

func (s *Service) validate(input Input) (string, *string, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return "", nil, domain.Validationf("name is required")
	}
	var kind *string
	if input.Kind != nil {
		k := strings.TrimSpace(*input.Kind)
		if k != "" {
			kind = &k
		}
	}
	return name, kind, nil
}
