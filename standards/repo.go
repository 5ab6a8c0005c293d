package standards

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"sigs.k8s.io/yaml"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/protoreview", "standards")

// ErrNotFound is returned when a standard ID is not present in the
// repository.
var ErrNotFound = errors.New("standard not found")

// StandardsDirEnvVarName overrides the directory standards are loaded from.
const StandardsDirEnvVarName = "STANDARDS_DIR"

// Repository holds the loaded standards. It is immutable after load and
// safe for concurrent readers.
type Repository struct {
	universal map[string]*Standard
	org       map[string]*Standard

	universalIDs []string
	orgIDs       []string
}

// aipFile is the on-disk shape of a universal standard, identified by its
// AIP number.
type aipFile struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Rules   []Rule `json:"rules"`
}

// orgFile is the on-disk shape of an organizational standard.
type orgFile struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	AppliesTo   string   `json:"applies_to"`
	RelatedAIPs []string `json:"related_aips"`
	Rules       []Rule   `json:"rules"`
}

// Load reads the standards from dir, or from the STANDARDS_DIR environment
// variable when dir is empty. When neither is set, the embedded default
// catalog is used.
func Load(dir string) (*Repository, error) {
	if dir == "" {
		dir = os.Getenv(StandardsDirEnvVarName)
	}
	if dir == "" {
		sub, err := fs.Sub(defaultsFS, "defaults")
		if err != nil {
			return nil, errors.Wrap(err, "failed to open embedded standards")
		}
		return loadFS(sub)
	}
	return loadFS(os.DirFS(dir))
}

func loadFS(fsys fs.FS) (*Repository, error) {
	r := &Repository{
		universal: make(map[string]*Standard),
		org:       make(map[string]*Standard),
	}

	if err := r.loadUniversal(fsys); err != nil {
		return nil, err
	}
	if err := r.loadOrg(fsys); err != nil {
		return nil, err
	}

	logger.KV(xlog.DEBUG,
		"universal", len(r.universalIDs),
		"org", len(r.orgIDs),
	)
	return r, nil
}

func (r *Repository) loadUniversal(fsys fs.FS) error {
	files, err := fs.Glob(fsys, "aips/*.yaml")
	if err != nil {
		return errors.Wrap(err, "failed to list universal standards")
	}

	type numbered struct {
		num int
		id  string
	}
	var order []numbered

	for _, file := range files {
		bs, err := fs.ReadFile(fsys, file)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", file)
		}
		var af aipFile
		if err := yaml.Unmarshal(bs, &af); err != nil {
			return errors.Wrapf(err, "failed to parse %s", file)
		}
		if af.ID == 0 {
			logger.KV(xlog.WARNING, "reason", "missing_id", "file", path.Base(file))
			continue
		}
		id := fmt.Sprintf("AIP-%d", af.ID)
		r.universal[id] = &Standard{
			ID:      id,
			Title:   af.Title,
			Summary: strings.TrimSpace(af.Summary),
			Rules:   af.Rules,
		}
		order = append(order, numbered{num: af.ID, id: id})
	}

	sort.Slice(order, func(i, j int) bool { return order[i].num < order[j].num })
	for _, n := range order {
		r.universalIDs = append(r.universalIDs, n.id)
	}
	return nil
}

func (r *Repository) loadOrg(fsys fs.FS) error {
	files, err := fs.Glob(fsys, "org/*.yaml")
	if err != nil {
		return errors.Wrap(err, "failed to list organizational standards")
	}

	for _, file := range files {
		bs, err := fs.ReadFile(fsys, file)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", file)
		}
		var of orgFile
		if err := yaml.Unmarshal(bs, &of); err != nil {
			return errors.Wrapf(err, "failed to parse %s", file)
		}
		if of.ID == "" {
			logger.KV(xlog.WARNING, "reason", "missing_id", "file", path.Base(file))
			continue
		}
		id := strings.ToUpper(of.ID)
		r.org[id] = &Standard{
			ID:          id,
			Title:       of.Title,
			Summary:     strings.TrimSpace(of.Summary),
			AppliesTo:   of.AppliesTo,
			RelatedAIPs: of.RelatedAIPs,
			Rules:       of.Rules,
		}
		r.orgIDs = append(r.orgIDs, id)
	}

	sort.Strings(r.orgIDs)
	return nil
}

// NormalizeUniversalID accepts "AIP-142", "aip-142", or a bare number and
// returns the canonical form.
func NormalizeUniversalID(id string) string {
	id = strings.ToUpper(strings.TrimSpace(id))
	if _, err := strconv.Atoi(id); err == nil {
		return "AIP-" + id
	}
	return id
}

// GetUniversal returns a universal standard by ID.
func (r *Repository) GetUniversal(id string) (*Standard, error) {
	s, ok := r.universal[NormalizeUniversalID(id)]
	if !ok {
		return nil, errors.WithMessagef(ErrNotFound, "%s not found in knowledge base", NormalizeUniversalID(id))
	}
	return s, nil
}

// GetOrg returns an organizational standard by ID.
func (r *Repository) GetOrg(id string) (*Standard, error) {
	key := strings.ToUpper(strings.TrimSpace(id))
	s, ok := r.org[key]
	if !ok {
		return nil, errors.WithMessagef(ErrNotFound, "organizational standard %q not found", id)
	}
	return s, nil
}

// ListUniversal returns the universal standards ordered by AIP number.
func (r *Repository) ListUniversal() []*Standard {
	res := make([]*Standard, 0, len(r.universalIDs))
	for _, id := range r.universalIDs {
		res = append(res, r.universal[id])
	}
	return res
}

// ListOrg returns the organizational standards ordered by ID.
func (r *Repository) ListOrg() []*Standard {
	res := make([]*Standard, 0, len(r.orgIDs))
	for _, id := range r.orgIDs {
		res = append(res, r.org[id])
	}
	return res
}

// UniversalIndex renders a brief listing of all universal standards.
func (r *Repository) UniversalIndex() string {
	var b strings.Builder
	b.WriteString("# Available Universal Standards\n\n")
	for _, s := range r.ListUniversal() {
		fmt.Fprintf(&b, "- **%s**: %s\n", s.ID, s.Title)
	}
	return b.String()
}

// OrgIndex renders a brief listing of all organizational standards.
func (r *Repository) OrgIndex() string {
	list := r.ListOrg()
	if len(list) == 0 {
		return "No organizational standards defined."
	}

	var b strings.Builder
	b.WriteString("# Organizational Standards\n\n")
	b.WriteString("These are organization-specific rules that extend the universal AIP standards.\n\n")
	for _, s := range list {
		fmt.Fprintf(&b, "- **%s**: %s\n", s.ID, s.Title)
		fmt.Fprintf(&b, "  Applies to: %s\n", s.AppliesTo)
	}
	b.WriteString("\nUse get_org_standard(standard_id) for detailed guidance.\n")
	return b.String()
}
