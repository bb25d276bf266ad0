package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	utils "rental-service/shared/utils"
)

var ErrNoContractVersion = errors.New("contract has no versions")

type Contract struct {
	ID             string         `json:"id" db:"id"`
	ApartmentID    string         `json:"apartment_id" db:"apartment_id"`
	OwnerID        string         `json:"owner_id" db:"owner_id"`
	Status         ContractStatus `json:"status" db:"status"`
	CurrentVersion string         `json:"current_version" db:"current_version"`
	StartDate      int64          `json:"start_date" db:"start_date"`
	EndDate        int64          `json:"end_date" db:"end_date"`
	CreatedAt      int64          `json:"created_at" db:"created_at"`
	UpdatedAt      int64          `json:"updated_at" db:"updated_at"`
	Revision       int64          `json:"revision" db:"revision"`

	// ordered by (version_number, minor_version)
	Versions []ContractVersion `json:"versions" db:"-"`
}

type ContractVersion struct {
	ContractID    string          `json:"contract_id" db:"contract_id"`
	VersionNumber int             `json:"version_number" db:"version_number"`
	MinorVersion  int             `json:"minor_version" db:"minor_version"`
	Rent          decimal.Decimal `json:"rent" db:"rent"`
	Utilities     Utilities       `json:"utilities" db:"utilities"`
	Tenants       StringList      `json:"tenants" db:"tenants"`
	Changelog     Changelog       `json:"changelog" db:"changelog"`
	Appendices    Appendices      `json:"appendices" db:"appendices"`
	CreatedAt     int64           `json:"created_at" db:"created_at"`
	UpdatedAt     int64           `json:"updated_at" db:"updated_at"`
}

type ChangelogEntry struct {
	Version string `json:"version"`
	Kind    string `json:"kind"`
	Summary string `json:"summary"`
	By      string `json:"by"`
	At      int64  `json:"at"`
}

type Changelog []ChangelogEntry

func (c Changelog) Value() (driver.Value, error) {
	if c == nil {
		return utils.JSONValue([]ChangelogEntry{})
	}
	return utils.JSONValue([]ChangelogEntry(c))
}

func (c *Changelog) Scan(value any) error {
	*c = Changelog{}
	return utils.ScanJSON(value, (*[]ChangelogEntry)(c))
}

// Appendix records one minor amendment of a contract version.
type Appendix struct {
	Number      int      `json:"number"`
	Description string   `json:"description"`
	Changes     []string `json:"changes"`
	By          string   `json:"by"`
	At          int64    `json:"at"`
}

type Appendices []Appendix

func (a Appendices) Value() (driver.Value, error) {
	if a == nil {
		return utils.JSONValue([]Appendix{})
	}
	return utils.JSONValue([]Appendix(a))
}

func (a *Appendices) Scan(value any) error {
	*a = Appendices{}
	return utils.ScanJSON(value, (*[]Appendix)(a))
}

const (
	changeCreated = "created"
	changeMajor   = "major"
	changeMinor   = "minor"
)

// Terms are the billable terms carried by one contract version.
type Terms struct {
	Rent      decimal.Decimal `json:"rent"`
	Utilities Utilities       `json:"utilities"`
	Tenants   []string        `json:"tenants"`
}

func (t Terms) Validate() error {
	if t.Rent.IsNegative() {
		return fmt.Errorf("rent must not be negative")
	}
	return t.Utilities.Validate()
}

// Amendment is a minor update. Nil fields are left unchanged.
type Amendment struct {
	Description string           `json:"description"`
	Rent        *decimal.Decimal `json:"rent"`
	Utilities   *Utilities       `json:"utilities"`
	Tenants     []string         `json:"tenants"`
}

func FormatVersion(major, minor int) string {
	return fmt.Sprintf("%d.%02d", major, minor)
}

func ParseVersion(label string) (major, minor int, err error) {
	left, right, ok := strings.Cut(label, ".")
	if !ok {
		return 0, 0, fmt.Errorf("version %q is not N.MM", label)
	}
	if major, err = strconv.Atoi(left); err != nil || major < 1 {
		return 0, 0, fmt.Errorf("version %q has an invalid major part", label)
	}
	if minor, err = strconv.Atoi(right); err != nil || minor < 0 {
		return 0, 0, fmt.Errorf("version %q has an invalid minor part", label)
	}
	return major, minor, nil
}

func (v *ContractVersion) Label() string {
	return FormatVersion(v.VersionNumber, v.MinorVersion)
}

func (v *ContractVersion) Terms() Terms {
	return Terms{Rent: v.Rent, Utilities: v.Utilities, Tenants: slices.Clone([]string(v.Tenants))}
}

func (v *ContractVersion) MonthlyTotal() decimal.Decimal {
	return v.Rent.Add(v.Utilities.Total())
}

func versionLess(a, b *ContractVersion) bool {
	if a.VersionNumber != b.VersionNumber {
		return a.VersionNumber < b.VersionNumber
	}
	return a.MinorVersion < b.MinorVersion
}

// NewContract builds an active contract whose history starts at 1.00.
func NewContract(id, apartmentID, ownerID string, terms Terms, startDate, endDate int64, by string, now int64) *Contract {
	c := &Contract{
		ID:          id,
		ApartmentID: apartmentID,
		OwnerID:     ownerID,
		Status:      ContractActive,
		StartDate:   startDate,
		EndDate:     endDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	v := ContractVersion{
		ContractID:    id,
		VersionNumber: 1,
		MinorVersion:  0,
		Rent:          terms.Rent,
		Utilities:     terms.Utilities,
		Tenants:       StringList(slices.Clone(terms.Tenants)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	v.Changelog = Changelog{{Version: v.Label(), Kind: changeCreated, Summary: "contract created", By: by, At: now}}
	c.Versions = []ContractVersion{v}
	c.CurrentVersion = v.Label()
	return c
}

// LatestVersion picks the highest (version_number, minor_version) pair.
func (c *Contract) LatestVersion() (*ContractVersion, error) {
	if len(c.Versions) == 0 {
		return nil, ErrNoContractVersion
	}
	latest := &c.Versions[0]
	for i := 1; i < len(c.Versions); i++ {
		if versionLess(latest, &c.Versions[i]) {
			latest = &c.Versions[i]
		}
	}
	return latest, nil
}

// ErrSupersededVersion reports a minor label that a later appendix rewrote.
// Appendices amend in place, so only each major version's latest minor state
// is stored.
var ErrSupersededVersion = errors.New("contract version was superseded by an appendix")

// Version looks up a version by its exact "N.MM" label.
func (c *Contract) Version(label string) (*ContractVersion, error) {
	major, minor, err := ParseVersion(label)
	if err != nil {
		return nil, err
	}
	for i := range c.Versions {
		v := &c.Versions[i]
		if v.VersionNumber != major {
			continue
		}
		if minor == v.MinorVersion {
			return v, nil
		}
		if minor < v.MinorVersion {
			return nil, fmt.Errorf("version %s is now %s: %w", label, v.Label(), ErrSupersededVersion)
		}
	}
	return nil, fmt.Errorf("version %s not found", label)
}

// ApplyMajorUpdate appends a new version numbered latest+1 with minor 0.
// Earlier versions are left untouched.
func (c *Contract) ApplyMajorUpdate(terms Terms, summary, by string, now int64) (*ContractVersion, error) {
	latest, err := c.LatestVersion()
	if err != nil {
		return nil, err
	}
	if summary == "" {
		summary = "major update"
	}

	next := ContractVersion{
		ContractID:    c.ID,
		VersionNumber: latest.VersionNumber + 1,
		MinorVersion:  0,
		Rent:          terms.Rent,
		Utilities:     terms.Utilities,
		Tenants:       StringList(slices.Clone(terms.Tenants)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	next.Changelog = Changelog{{Version: next.Label(), Kind: changeMajor, Summary: summary, By: by, At: now}}

	c.Versions = append(c.Versions, next)
	c.CurrentVersion = next.Label()
	c.UpdatedAt = now
	return &c.Versions[len(c.Versions)-1], nil
}

// ApplyMinorUpdate amends the latest version in place, records an appendix
// and bumps only its minor number.
func (c *Contract) ApplyMinorUpdate(a Amendment, by string, now int64) (*ContractVersion, error) {
	latest, err := c.LatestVersion()
	if err != nil {
		return nil, err
	}

	var changes []string
	if a.Rent != nil && !a.Rent.Equal(latest.Rent) {
		changes = append(changes, fmt.Sprintf("rent: %s -> %s", latest.Rent.StringFixed(2), a.Rent.StringFixed(2)))
		latest.Rent = *a.Rent
	}
	if a.Utilities != nil && !a.Utilities.Equal(latest.Utilities) {
		changes = append(changes, fmt.Sprintf("utilities: %s -> %s",
			latest.Utilities.Total().StringFixed(2), a.Utilities.Total().StringFixed(2)))
		latest.Utilities = *a.Utilities
	}
	if a.Tenants != nil && !slices.Equal(a.Tenants, []string(latest.Tenants)) {
		changes = append(changes, fmt.Sprintf("tenants: %d -> %d", len(latest.Tenants), len(a.Tenants)))
		latest.Tenants = StringList(slices.Clone(a.Tenants))
	}

	latest.MinorVersion++
	latest.UpdatedAt = now
	latest.Appendices = append(latest.Appendices, Appendix{
		Number:      latest.MinorVersion,
		Description: a.Description,
		Changes:     changes,
		By:          by,
		At:          now,
	})
	latest.Changelog = append(latest.Changelog, ChangelogEntry{
		Version: latest.Label(),
		Kind:    changeMinor,
		Summary: a.Description,
		By:      by,
		At:      now,
	})

	c.CurrentVersion = latest.Label()
	c.UpdatedAt = now
	return latest, nil
}

// CheckVersions verifies currentVersion names the last, highest version and
// that version numbers strictly increase.
func (c *Contract) CheckVersions() error {
	if len(c.Versions) == 0 {
		return ErrNoContractVersion
	}
	for i := 1; i < len(c.Versions); i++ {
		if c.Versions[i].VersionNumber <= c.Versions[i-1].VersionNumber {
			return fmt.Errorf("version %s follows %s", c.Versions[i].Label(), c.Versions[i-1].Label())
		}
	}
	last := c.Versions[len(c.Versions)-1]
	if c.CurrentVersion != last.Label() {
		return fmt.Errorf("current version %s does not match latest %s", c.CurrentVersion, last.Label())
	}
	return nil
}
