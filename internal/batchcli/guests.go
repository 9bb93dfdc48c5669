package batchcli

import (
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/guestrank/internal/domain/model"
)

// LoadGuests reads the "guests" list from a YAML or JSON file, picked by extension.
func LoadGuests(path string) ([]model.Guest, error) {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		parser = json.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	default:
		return nil, fmt.Errorf("%w: %s: unsupported extension", ErrGuestsFile, path)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrGuestsFile, path, err)
	}

	var guests []model.Guest
	if err := k.UnmarshalWithConf("guests", &guests, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrGuestsFile, path, err)
	}
	if len(guests) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoGuests, path)
	}
	return guests, nil
}

var (
	firstNames = []string{"Ada", "Grace", "Linus", "Barbara", "Ken", "Margaret", "Dennis", "Radia"}
	lastNames  = []string{"Lovelace", "Hopper", "Torvalds", "Liskov", "Thompson", "Hamilton", "Ritchie", "Perlman"}
	companies  = []string{"", "Acme", "Globex", "Initech", "Umbrella Fintech", "Stark Industries"}
	titles     = []string{"", "Intern", "Engineer", "Director of Sales", "VP Marketing", "CEO", "Founder"}
	notes      = []string{"", "", "VIP", "keynote speaker", "sponsor contact", "press"}
)

// GenerateGuests builds n synthetic guests with uuid ids.
func GenerateGuests(n int, organizationID string, rng *rand.Rand) []model.Guest {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // synthetic data
	}
	guests := make([]model.Guest, 0, n)
	for range n {
		first := firstNames[rng.IntN(len(firstNames))]
		last := lastNames[rng.IntN(len(lastNames))]
		company := companies[rng.IntN(len(companies))]

		domain := "gmail.com"
		if company != "" {
			domain = strings.ToLower(strings.Fields(company)[0]) + ".test"
		}
		guests = append(guests, model.Guest{
			ID:             uuid.NewString(),
			OrganizationID: organizationID,
			FirstName:      first,
			LastName:       last,
			Email:          strings.ToLower(first+"."+last) + "@" + domain,
			Company:        company,
			JobTitle:       titles[rng.IntN(len(titles))],
			Notes:          notes[rng.IntN(len(notes))],
		})
	}
	return guests
}

// chunk splits guests into slices of at most size elements.
func chunk(guests []model.Guest, size int) [][]model.Guest {
	if size <= 0 {
		size = len(guests)
	}
	var out [][]model.Guest
	for start := 0; start < len(guests); start += size {
		end := min(start+size, len(guests))
		out = append(out, guests[start:end])
	}
	return out
}
