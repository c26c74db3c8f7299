package seed

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

// Spec is the declarative description of schema objects, roles, and
// sample rows to apply. Application is per-object and existence-checked,
// so re-applying a spec is always safe.
type Spec struct {
	Dialect string   `yaml:"dialect"`
	Schemas []string `yaml:"schemas"`
	Roles   []Role   `yaml:"roles"`
	Tables  []Table  `yaml:"tables"`
}

// Role declares a database role/user to create if absent.
type Role struct {
	Name     string `yaml:"name"`
	Login    bool   `yaml:"login"`
	Password string `yaml:"password"`
}

// Table declares a table to create if absent, plus sample rows to
// insert with conflict-skip semantics.
type Table struct {
	Name       string           `yaml:"name"`
	Definition string           `yaml:"definition"`
	KeyColumns []string         `yaml:"keyColumns"`
	Rows       []map[string]any `yaml:"rows"`
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Load reads a seed spec YAML file, applies defaults, and validates it.
func Load(filename string) (*Spec, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading seed spec: %w", err)
	}

	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing seed spec: %w", err)
	}

	if s.Dialect == "" {
		s.Dialect = DialectPostgres
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validating seed spec %s: %w", filename, err)
	}

	return &s, nil
}

// Validate checks the seed spec for errors.
func (s *Spec) Validate() error {
	if s.Dialect != DialectPostgres && s.Dialect != DialectMySQL {
		return fmt.Errorf("unknown dialect %q (valid: %s, %s)", s.Dialect, DialectPostgres, DialectMySQL)
	}

	if len(s.Schemas) == 0 && len(s.Roles) == 0 && len(s.Tables) == 0 {
		return fmt.Errorf("seed spec declares nothing to apply")
	}

	for _, schema := range s.Schemas {
		if !identPattern.MatchString(schema) {
			return fmt.Errorf("schema name %q is not a valid identifier", schema)
		}
	}

	for i, role := range s.Roles {
		if role.Name == "" {
			return fmt.Errorf("role %d: name is required", i)
		}
		if !identPattern.MatchString(role.Name) {
			return fmt.Errorf("role name %q is not a valid identifier", role.Name)
		}
	}

	for i, table := range s.Tables {
		if table.Name == "" {
			return fmt.Errorf("table %d: name is required", i)
		}
		if !identPattern.MatchString(table.Name) {
			return fmt.Errorf("table name %q is not a valid identifier", table.Name)
		}
		if table.Definition == "" {
			return fmt.Errorf("table %q: definition is required", table.Name)
		}
		for _, col := range table.KeyColumns {
			if !identPattern.MatchString(col) {
				return fmt.Errorf("table %q: key column %q is not a valid identifier", table.Name, col)
			}
		}
		for j, row := range table.Rows {
			if len(row) == 0 {
				return fmt.Errorf("table %q: row %d is empty", table.Name, j)
			}
		}
	}

	return nil
}
